package services

import "context"

type ctxKey int

const clientIPKey ctxKey = iota

// WithClientIP stores the caller's address for audit rows.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
