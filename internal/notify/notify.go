// Package notify provides model.Notifier implementations which are not
// bound to a chat transport.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/CZERTAINLY/dfswatch/internal/model"
	"github.com/CZERTAINLY/dfswatch/internal/parallel"
)

// Writer prints notifications to an io.Writer, one line prefixed by the
// recipient per message.
type Writer struct {
	mx sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	if w == nil {
		w = os.Stdout
	}
	return &Writer{w: w}
}

func (n *Writer) Notify(_ context.Context, recipient, text string) error {
	n.mx.Lock()
	defer n.mx.Unlock()
	_, err := fmt.Fprintf(n.w, "%s: %s\n", recipient, text)
	return err
}

// Multi delivers every notification to all its notifiers concurrently and
// waits for them. A failing notifier does not prevent delivery through the
// others.
type Multi []model.Notifier

func (m Multi) Notify(ctx context.Context, recipient, text string) error {
	return parallel.Each(ctx, len(m), m, func(ctx context.Context, n model.Notifier) error {
		return n.Notify(ctx, recipient, text)
	})
}

// Close closes all notifiers implementing model.NotifyCloser.
func (m Multi) Close(ctx context.Context) {
	for _, n := range m {
		if closer, ok := n.(model.NotifyCloser); ok {
			if err := closer.Close(); err != nil {
				slog.ErrorContext(ctx, "closing notifier has failed", "error", err)
			}
		}
	}
}
