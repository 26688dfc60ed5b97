package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Noop is the default hook
func Noop(context.Context, any, string) error {
	return nil
}

// Chain runs hooks in order and stops at the first error. Nil hooks are skipped.
func Chain(hooks ...Hook) Hook {
	return func(ctx context.Context, server any, signal string) error {
		for _, hook := range hooks {
			if hook == nil {
				continue
			}

			if err := hook(ctx, server, signal); err != nil {
				return err
			}
		}

		return nil
	}
}

// Components returns a hook that shuts the components down in reverse order.
// Every component is attempted; failures are joined into one error.
func Components(logger *slog.Logger, shutdowners ...Shutdowner) Hook {
	return func(ctx context.Context, _ any, _ string) error {
		var errs error

		// Shutdown components in reverse order to ensure dependencies are met
		for i := len(shutdowners) - 1; i >= 0; i-- {
			start := time.Now()
			shutdowner := shutdowners[i]

			if err := shutdowner.Shutdown(ctx); err != nil {
				logger.ErrorContext(ctx, "component shutdown failed",
					"component", shutdowner.Name(),
					"duration", time.Since(start),
					"reason", err,
				)

				errs = errors.Join(errs, err)

				continue
			}

			logger.InfoContext(ctx, "component shutdown completed",
				"component", shutdowner.Name(),
				"duration", time.Since(start),
			)
		}

		return errs
	}
}
