package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}

type principalIDKey struct{}

type sessionIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithPrincipalID records the signed-in principal for log correlation.
func WithPrincipalID(ctx context.Context, principalID string) context.Context {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return ctx
	}
	return context.WithValue(ctx, principalIDKey{}, principalID)
}

func PrincipalIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(principalIDKey{}).(string)
	return value
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(sessionIDKey{}).(string)
	return value
}
