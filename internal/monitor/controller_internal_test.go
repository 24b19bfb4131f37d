package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/CZERTAINLY/dfswatch/internal/model"

	"github.com/stretchr/testify/require"
)

type nopProber struct{}

func (nopProber) Probe(context.Context) ([]byte, error) { return nil, nil }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string) error { return nil }

func TestStopLeavesSignalUntouched(t *testing.T) {
	t.Parallel()
	c := NewController(nopProber{}, nopNotifier{}, WithInterval(time.Hour))

	require.ErrorIs(t, c.Stop(), model.ErrNotRunning)
	require.False(t, c.sig.drain(), "stop on a stopped controller raised the signal")
	require.Equal(t, Stopped, c.State())

	// a refused stop while stopping must not re-arm the consumed signal
	c.mx.Lock()
	c.state = Stopping
	c.mx.Unlock()
	require.ErrorIs(t, c.Stop(), model.ErrNotRunning)
	require.False(t, c.sig.drain(), "stop on a stopping controller raised the signal")
}
