package authflow

import "context"

type requestIDContextKey struct{}
type clientIPContextKey struct{}
type userAgentContextKey struct{}

// WithRequestID attaches a request identifier to ctx. It overrides the
// generated X-Request-ID on the backend call and is echoed into the audit
// event emitted for that operation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// WithClientIP attaches the end user's IP address to ctx. The transport
// forwards it as X-Forwarded-For so the backend rate-limits and logs the
// real client, not this library's host.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches an HTTP User-Agent string to ctx, overriding the
// configured default for that one call.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}
