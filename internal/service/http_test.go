package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CZERTAINLY/dfswatch/internal/monitor"
	"github.com/CZERTAINLY/dfswatch/internal/probe"
	"github.com/CZERTAINLY/dfswatch/internal/service"

	"github.com/stretchr/testify/require"
)

type nopProbe struct{}

func (nopProbe) Probe(context.Context) ([]byte, error) { return nil, nil }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string) error { return nil }

func do(t *testing.T, srv *httptest.Server, method, path string, out any) int {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	if out != nil {
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHandler(t *testing.T) {
	ctrl := monitor.NewController(nopProbe{}, nopNotifier{}, monitor.WithInterval(time.Hour))
	srv := httptest.NewServer(service.NewHandler(t.Context(), ctrl, service.HandlerOptions{Recipient: "42"}))
	t.Cleanup(srv.Close)
	t.Cleanup(ctrl.Wait)

	var health map[string]string
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/service", &health))
	require.Equal(t, "ok", health["status"])

	var st service.Status
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/monitor", &st))
	require.Equal(t, "stopped", st.State)
	require.Equal(t, "1h0m0s", st.Interval)
	require.Empty(t, st.RunID)
	require.Nil(t, st.LastRun)
	require.Nil(t, st.NextStart)

	var msg struct {
		Message string `json:"message"`
	}
	require.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/monitor/stop", &msg))
	require.Equal(t, monitor.MsgNotRunning, msg.Message)

	require.Equal(t, http.StatusAccepted, do(t, srv, http.MethodPost, "/monitor/start?recipient=17", &msg))
	require.Equal(t, monitor.MsgStarted, msg.Message)
	require.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/monitor/start", &msg))
	require.Equal(t, monitor.MsgAlreadyRunning, msg.Message)

	st = service.Status{}
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/monitor", &st))
	require.Equal(t, "running", st.State)
	require.NotEmpty(t, st.RunID)
	require.Equal(t, "17", st.Recipient)
	require.NotNil(t, st.Started)

	run, ok := ctrl.Run()
	require.True(t, ok)
	require.Equal(t, http.StatusAccepted, do(t, srv, http.MethodPost, "/monitor/stop", &msg))
	require.Equal(t, monitor.MsgStopping, msg.Message)
	<-run.Done()

	require.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodGet, "/monitor/start", nil))
	require.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/nope", nil))
}

func TestHandlerRejectsRecipient(t *testing.T) {
	ctrl := monitor.NewController(nopProbe{}, nopNotifier{}, monitor.WithInterval(time.Hour))
	srv := httptest.NewServer(service.NewHandler(t.Context(), ctrl, service.HandlerOptions{
		Recipient: service.DefaultRecipient,
		CheckRecipient: func(recipient string) error {
			if recipient != "17" {
				return errors.New("unknown chat")
			}
			return nil
		},
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(ctrl.Wait)

	var msg struct {
		Message string `json:"message"`
	}
	require.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/monitor/start", &msg))
	require.Equal(t, "Invalid recipient: unknown chat", msg.Message)
	require.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/monitor/start?recipient=18", &msg))
	require.Equal(t, monitor.Stopped, ctrl.State())

	require.Equal(t, http.StatusAccepted, do(t, srv, http.MethodPost, "/monitor/start?recipient=17", &msg))
	run, ok := ctrl.Run()
	require.True(t, ok)
	require.Equal(t, "17", run.Recipient)
	require.NoError(t, ctrl.Stop())
	<-run.Done()
}

func TestHandlerStatusTiming(t *testing.T) {
	ctrl := monitor.NewController(nopProbe{}, nopNotifier{}, monitor.WithInterval(time.Hour))
	started := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	next := started.Add(15 * time.Minute)
	srv := httptest.NewServer(service.NewHandler(t.Context(), ctrl, service.HandlerOptions{
		Recipient: "42",
		LastRun: func() probe.Result {
			return probe.Result{
				Path:    "/usr/bin/dmesg",
				Started: started,
				Stopped: started.Add(1500 * time.Millisecond),
				Err:     errors.New("signal: killed"),
			}
		},
		NextStart: func() (time.Time, error) { return next, nil },
	}))
	t.Cleanup(srv.Close)

	var st service.Status
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/monitor", &st))
	require.NotNil(t, st.LastRun)
	require.True(t, started.Equal(st.LastRun.Started))
	require.Equal(t, "1.5s", st.LastRun.Duration)
	require.Nil(t, st.LastRun.ExitCode)
	require.Equal(t, "signal: killed", st.LastRun.Error)
	require.NotNil(t, st.NextStart)
	require.True(t, next.Equal(*st.NextStart))

	// a runner which has not finished a single invocation
	srv2 := httptest.NewServer(service.NewHandler(t.Context(), ctrl, service.HandlerOptions{
		Recipient: "42",
		LastRun:   func() probe.Result { return probe.Result{Err: probe.ErrProbeNotStarted} },
		NextStart: func() (time.Time, error) { return time.Time{}, errors.New("job not scheduled") },
	}))
	t.Cleanup(srv2.Close)
	st = service.Status{}
	require.Equal(t, http.StatusOK, do(t, srv2, http.MethodGet, "/monitor", &st))
	require.Nil(t, st.LastRun)
	require.Nil(t, st.NextStart)
}
