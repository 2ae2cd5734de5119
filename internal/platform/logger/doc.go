// Package logger provides structured logging functionality for the application.
//
// It builds JSON slog loggers with a configurable level, scrubs secrets from
// attribute values, stamps every record with the request's trace ID and
// carries request-scoped loggers through context.Context.
package logger
