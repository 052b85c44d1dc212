// Package pkglog configures the process-wide slog logger.
//
// Records are JSON with ts/severity/file keys, tagged with the service name and,
// when the request context carries one, the correlation ID.
package pkglog
