package monitor_test

import (
	"context"
	"testing"
	"time"

	"github.com/CZERTAINLY/dfswatch/internal/monitor"

	"github.com/stretchr/testify/require"
)

func TestWait(t *testing.T) {
	t.Parallel()

	t.Run("elapsed", func(t *testing.T) {
		t.Parallel()
		sig := monitor.NewSignal()
		start := time.Now()
		res := monitor.Wait(t.Context(), 20*time.Millisecond, sig)
		require.Equal(t, monitor.Elapsed, res)
		require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("notified before wait", func(t *testing.T) {
		t.Parallel()
		sig := monitor.NewSignal()
		sig.Notify()
		start := time.Now()
		res := monitor.Wait(t.Context(), time.Hour, sig)
		require.Equal(t, monitor.Cancelled, res)
		require.Less(t, time.Since(start), time.Second)
	})

	t.Run("notified while parked", func(t *testing.T) {
		t.Parallel()
		sig := monitor.NewSignal()
		done := make(chan monitor.WaitResult, 1)
		go func() {
			done <- monitor.Wait(context.Background(), time.Hour, sig)
		}()
		time.Sleep(20 * time.Millisecond)
		sig.Notify()
		select {
		case res := <-done:
			require.Equal(t, monitor.Cancelled, res)
		case <-time.After(2 * time.Second):
			t.Fatal("wait was not interrupted")
		}
	})

	t.Run("context done", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		res := monitor.Wait(ctx, time.Hour, monitor.NewSignal())
		require.Equal(t, monitor.Cancelled, res)
	})
}

func TestSignalCoalesces(t *testing.T) {
	t.Parallel()
	sig := monitor.NewSignal()
	for range 5 {
		sig.Notify()
	}

	// five notifications wake exactly one wait
	require.Equal(t, monitor.Cancelled, monitor.Wait(t.Context(), time.Hour, sig))
	require.Equal(t, monitor.Elapsed, monitor.Wait(t.Context(), 10*time.Millisecond, sig))
}

func TestWaitResultString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "elapsed", monitor.Elapsed.String())
	require.Equal(t, "cancelled", monitor.Cancelled.String())
}

func TestStateString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "stopped", monitor.Stopped.String())
	require.Equal(t, "running", monitor.Running.String())
	require.Equal(t, "stopping", monitor.Stopping.String())
	require.Equal(t, "unknown", monitor.State(42).String())
}
