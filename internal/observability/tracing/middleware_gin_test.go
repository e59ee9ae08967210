package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/streamgate/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return recorder
}

func spanAttributes(t *testing.T, recorder *tracetest.SpanRecorder) map[attribute.Key]attribute.Value {
	t.Helper()
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestGinMiddlewareRecordsGateStateAndPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := recordSpans(t)

	r := gin.New()
	r.Use(GinMiddleware())
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(obscontext.WithPrincipalID(c.Request.Context(), "user_1"))
		c.Next()
	})
	r.GET("/api/gate", func(c *gin.Context) {
		c.Set(GateStateKey, "authenticated_granted")
		c.JSON(http.StatusOK, gin.H{"state": "authenticated_granted"})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gate", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	attrs := spanAttributes(t, recorder)
	assert.Equal(t, "/api/gate", attrs["http.route"].AsString())
	assert.Equal(t, "user_1", attrs["enduser.id"].AsString())
	assert.Equal(t, "authenticated_granted", attrs["streamgate.gate.state"].AsString())
	assert.False(t, attrs["streamgate.stream"].AsBool())
	assert.Equal(t, "HTTP GET /api/gate", recorder.Ended()[0].Name())
}

func TestGinMiddlewareMarksEventStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := recordSpans(t)

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/watchlist/stream", func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/watchlist/stream", nil))

	attrs := spanAttributes(t, recorder)
	assert.True(t, attrs["streamgate.stream"].AsBool())
	_, hasPrincipal := attrs["enduser.id"]
	assert.False(t, hasPrincipal)
	_, hasState := attrs["streamgate.gate.state"]
	assert.False(t, hasState)
}
