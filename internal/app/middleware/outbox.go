package middleware

import (
	"context"
	"log/slog"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/commands"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/outbox"
)

// OutboxFlush flushes box after a successful command. The write has already
// committed by then, so a flush failure is logged and the result still
// returned; the relay worker picks the records up later.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil && logger != nil {
				logger.Error("outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
