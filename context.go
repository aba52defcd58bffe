package authcore

import "context"

type contextKey string

const clientIPKey contextKey = "authcore.client_ip"

// WithClientIP attaches the caller's IP for audit events. Transports set it
// once per request; the engine never derives an IP itself.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
