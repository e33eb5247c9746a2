// Package logging is the structured logger every passvault component takes
// as a dependency. The only implementation wraps log/slog.
package logging

import "context"

// Logger takes a message plus alternating key/value pairs:
//
//	log.Info(ctx, "backup uploaded", "name", name, "records", n)
//
// Values under a secret-looking key (see Redacted) are masked before they
// reach the output.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With binds pairs to every later record, e.g. a sync_id.
	With(args ...any) Logger
}
