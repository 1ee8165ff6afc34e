// Package logging is the structured logger handed to every plantapi
// component. SlogLogger backs it with log/slog; tests use no-op fakes.
package logging

import "context"

// Logger takes a message plus alternating key/value attributes:
//
//	log.Warn(ctx, "ledger lookup slow", "jti", jti, "elapsed", d)
type Logger interface {
	// Debug is for rejected tokens and similar noise; off unless the level
	// is "debug".
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	// Error is for failures that surface to callers as 5xx.
	Error(ctx context.Context, msg string, args ...any)

	// With binds attributes, usually "module", to every later record.
	With(args ...any) Logger
}
