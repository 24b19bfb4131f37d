// Package chat maps operator chat commands to the monitor controller.
package chat

import (
	"context"
	"log/slog"

	"github.com/CZERTAINLY/dfswatch/internal/model"
	"github.com/CZERTAINLY/dfswatch/internal/monitor"
)

// Controller is the part of monitor.Controller the router drives.
type Controller interface {
	Start(ctx context.Context, recipient string) error
	Stop() error
}

type Router struct {
	ctx   context.Context
	ctrl  Controller
	reply model.Notifier
}

// NewRouter returns a router replying through reply. Loops started by the
// router live as long as ctx, not as long as the message which started them.
func NewRouter(ctx context.Context, ctrl Controller, reply model.Notifier) *Router {
	return &Router{
		ctx:   ctx,
		ctrl:  ctrl,
		reply: reply,
	}
}

// Handle executes the command found in text and replies to recipient.
// Messages which are not commands are ignored. The returned error is the
// error of the reply.
func (r *Router) Handle(ctx context.Context, recipient, text string) error {
	cmd, ok := Parse(text)
	if !ok {
		slog.DebugContext(ctx, "ignoring message: not a command", "recipient", recipient)
		return nil
	}
	slog.InfoContext(ctx, "command received", "command", cmd.String(), "recipient", recipient)

	var answer string
	switch cmd {
	case Help:
		answer = HelpText()
	case Start:
		answer = monitor.StartReply(r.ctrl.Start(r.ctx, recipient))
	case Stop:
		answer = monitor.StopReply(r.ctrl.Stop())
	}

	if err := r.reply.Notify(ctx, recipient, answer); err != nil {
		slog.WarnContext(ctx, "reply failed", "command", cmd.String(), "error", err)
		return err
	}
	return nil
}
