package safego

import (
	"context"
	"fmt"
	"runtime/debug"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

// Execute runs fn in a new goroutine and logs, instead of crashing on, any panic it raises.
func Execute(ctx context.Context, logger domain.Logger, goroutineName string, fn func()) {
	go Run(ctx, logger, goroutineName, fn)
}

// Run calls fn on the current goroutine with the same panic recovery as Execute.
// It reports whether fn returned normally.
func Run(ctx context.Context, logger domain.Logger, goroutineName string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			// The caller's context may already be done; logging must still work.
			logCtx := ctx
			if ctx.Err() != nil {
				logCtx = context.WithoutCancel(ctx)
			}
			logger.Error(logCtx, fmt.Sprintf("Panic recovered in goroutine: %s", goroutineName),
				"panic_info", fmt.Sprintf("%v", r),
				"stacktrace", string(debug.Stack()),
			)
		}
	}()
	fn()
	return true
}
