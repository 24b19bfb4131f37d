package monitor

import (
	"context"
	"log/slog"

	"github.com/CZERTAINLY/dfswatch/internal/log"
)

func (c *Controller) loop(ctx context.Context, run *Run) {
	ctx = log.ContextAttrs(ctx,
		slog.String("run_id", run.ID.String()),
		slog.String("recipient", run.Recipient),
	)
	slog.InfoContext(ctx, "monitor loop started", "interval", c.interval.String())
	defer func() {
		c.finish(run)
		slog.InfoContext(ctx, "monitor loop stopped")
	}()

	for {
		if c.State() == Stopping {
			return
		}
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "context done: leaving loop", "error", ctx.Err())
			return
		}

		out, err := c.prober.Probe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.ErrorContext(ctx, "probe failed: stopping monitor", "error", err)
			c.deliver(ctx, run.Recipient, ProbeFailedReply(err))
			return
		}

		if len(out) == 0 {
			slog.DebugContext(ctx, "probe returned no output")
		} else {
			slog.InfoContext(ctx, "probe matched: notifying", "bytes", len(out))
			c.deliver(ctx, run.Recipient, string(out))
		}

		if res := Wait(ctx, c.interval, c.sig); res == Cancelled {
			slog.DebugContext(ctx, "idle wait interrupted")
		}
	}
}

// deliver never fails the loop, a lost notification is only logged.
func (c *Controller) deliver(ctx context.Context, recipient, text string) {
	if err := c.notifier.Notify(ctx, recipient, text); err != nil {
		slog.WarnContext(ctx, "notification failed", "error", err)
	}
}
