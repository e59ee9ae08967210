package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

const maxAttributeLength = 256

var sensitiveKeyFragments = []string{"token", "secret", "password", "cookie", "authorization", "email"}

// ExtractContext restores the remote span context carried by carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// SafeAttributes drops credential-like keys and truncates long string values.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if isSensitiveKey(string(attr.Key)) {
			continue
		}
		if attr.Value.Type() == attribute.STRING {
			attr = attribute.String(string(attr.Key), truncate(attr.Value.AsString()))
		}
		out = append(out, attr)
	}
	return out
}

// SafeError returns an error whose message is safe to export on a span.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" || isSensitiveKey(msg) {
		return errors.New("internal_error")
	}
	return errors.New(truncate(msg))
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, fragment := range sensitiveKeyFragments {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}

func truncate(value string) string {
	if len(value) <= maxAttributeLength {
		return value
	}
	return value[:maxAttributeLength]
}
