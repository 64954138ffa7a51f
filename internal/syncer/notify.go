package syncer

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
)

// Notifier surfaces the outcome of optimistic mutations to the user.
// Calls happen after the cache has been reconciled.
type Notifier interface {
	Success(ctx context.Context, op string)
	Failure(ctx context.Context, op string, err error)
}

// LogNotifier reports outcomes through slog.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Success(ctx context.Context, op string) {
	n.logger().DebugContext(ctx, "mutation confirmed", "op", op)
}

func (n LogNotifier) Failure(ctx context.Context, op string, err error) {
	n.logger().WarnContext(ctx, "mutation failed", "op", op, "kind", Classify(err).String(), "error", err)
}

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}

// SentryNotifier forwards transient failures to Sentry and then delegates to
// Next. Validation, auth and not-found failures are user errors and are not
// reported.
type SentryNotifier struct {
	Hub  *sentry.Hub
	Next Notifier
}

func (n SentryNotifier) Success(ctx context.Context, op string) {
	if n.Next != nil {
		n.Next.Success(ctx, op)
	}
}

func (n SentryNotifier) Failure(ctx context.Context, op string, err error) {
	if Classify(err) == KindTransient {
		hub := n.Hub
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("op", op)
			hub.CaptureException(err)
		})
	}
	if n.Next != nil {
		n.Next.Failure(ctx, op, err)
	}
}
