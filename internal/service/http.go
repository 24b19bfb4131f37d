package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/CZERTAINLY/dfswatch/internal/model"
	"github.com/CZERTAINLY/dfswatch/internal/monitor"
	"github.com/CZERTAINLY/dfswatch/internal/probe"
)

// Status is the body of GET /monitor.
type Status struct {
	State     string     `json:"state"`
	Interval  string     `json:"interval"`
	RunID     string     `json:"run_id,omitempty"`
	Recipient string     `json:"recipient,omitempty"`
	Started   *time.Time `json:"started,omitempty"`
	LastRun   *LastRun   `json:"last_run,omitempty"`
	NextStart *time.Time `json:"next_start,omitempty"`
}

// LastRun describes the last finished command invocation.
type LastRun struct {
	Started  time.Time `json:"started"`
	Stopped  time.Time `json:"stopped"`
	Duration string    `json:"duration"`
	ExitCode *int      `json:"exit_code,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func newLastRun(res probe.Result) *LastRun {
	if errors.Is(res.Err, probe.ErrProbeNotStarted) {
		return nil
	}
	ret := &LastRun{
		Started:  res.Started,
		Stopped:  res.Stopped,
		Duration: res.Stopped.Sub(res.Started).String(),
	}
	if res.State != nil {
		code := res.State.ExitCode()
		ret.ExitCode = &code
	}
	if res.Err != nil {
		ret.Error = res.Err.Error()
	}
	return ret
}

type reply struct {
	Message string `json:"message"`
}

// HandlerOptions configures NewHandler. Only Recipient is required.
type HandlerOptions struct {
	// Recipient receives the notifications of loops started without
	// ?recipient=.
	Recipient string
	// CheckRecipient rejects recipients the notifiers can't deliver to.
	CheckRecipient func(string) error
	LastRun        func() probe.Result
	// NextStart reports the next scheduled start in timer mode.
	NextStart func() (time.Time, error)
}

type handler struct {
	ctx  context.Context
	ctrl *monitor.Controller
	opts HandlerOptions
}

// NewHandler exposes the controller over HTTP:
//
//	GET  /service              health check
//	GET  /monitor              Status
//	POST /monitor/start        start, ?recipient= overrides the default one
//	POST /monitor/stop         stop
//
// Loops started over HTTP are bound to ctx.
func NewHandler(ctx context.Context, ctrl *monitor.Controller, opts HandlerOptions) http.Handler {
	h := handler{ctx: ctx, ctrl: ctrl, opts: opts}
	r := mux.NewRouter()
	r.HandleFunc("/service", h.service).Methods(http.MethodGet)
	r.HandleFunc("/monitor", h.status).Methods(http.MethodGet)
	r.HandleFunc("/monitor/start", h.start).Methods(http.MethodPost)
	r.HandleFunc("/monitor/stop", h.stop).Methods(http.MethodPost)
	return r
}

func (h handler) service(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h handler) status(w http.ResponseWriter, _ *http.Request) {
	st := Status{
		State:    h.ctrl.State().String(),
		Interval: h.ctrl.Interval().String(),
	}
	if run, ok := h.ctrl.Run(); ok {
		st.RunID = run.ID.String()
		st.Recipient = run.Recipient
		st.Started = &run.Started
	}
	if h.opts.LastRun != nil {
		st.LastRun = newLastRun(h.opts.LastRun())
	}
	if h.opts.NextStart != nil {
		if next, err := h.opts.NextStart(); err == nil && !next.IsZero() {
			st.NextStart = &next
		}
	}
	writeJSON(w, http.StatusOK, st)
}

func (h handler) start(w http.ResponseWriter, r *http.Request) {
	recipient := r.URL.Query().Get("recipient")
	if recipient == "" {
		recipient = h.opts.Recipient
	}
	if h.opts.CheckRecipient != nil {
		if err := h.opts.CheckRecipient(recipient); err != nil {
			slog.WarnContext(r.Context(), "http start: invalid recipient", "recipient", recipient, "error", err)
			writeJSON(w, http.StatusBadRequest, reply{Message: "Invalid recipient: " + err.Error()})
			return
		}
	}
	err := h.ctrl.Start(h.ctx, recipient)
	slog.InfoContext(r.Context(), "http start", "recipient", recipient, "error", err)
	writeJSON(w, statusCode(err, model.ErrAlreadyRunning), reply{Message: monitor.StartReply(err)})
}

func (h handler) stop(w http.ResponseWriter, r *http.Request) {
	err := h.ctrl.Stop()
	slog.InfoContext(r.Context(), "http stop", "error", err)
	writeJSON(w, statusCode(err, model.ErrNotRunning), reply{Message: monitor.StopReply(err)})
}

func statusCode(err, conflict error) int {
	switch {
	case err == nil:
		return http.StatusAccepted
	case errors.Is(err, conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing http response", "error", err)
	}
}
