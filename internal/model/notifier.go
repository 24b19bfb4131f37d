package model

import "context"

// Prober runs one probe and returns its captured output.
type Prober interface {
	Probe(ctx context.Context) ([]byte, error)
}

// Notifier delivers text to a recipient. The recipient format is defined by
// the implementation, e.g. a Telegram chat id.
type Notifier interface {
	Notify(ctx context.Context, recipient, text string) error
}

type NotifyCloser interface {
	Notifier
	Close() error
}
