package pkglog

import "context"

type correlationIDKey struct{}

// GetCorrelationID returns the correlation ID stored in the context, or an
// empty string when the context carries none.
func GetCorrelationID(ctx context.Context) string {
	cid, _ := ctx.Value(correlationIDKey{}).(string)
	return cid
}

// SetCorrelationID stores a correlation ID into the context.
func SetCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, cid)
}
