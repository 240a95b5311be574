package httputil

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey struct{}

const HeaderRequestID = "X-Request-ID"

// traceparent/tracestate от браузера или прокси
var traceContext = propagation.TraceContext{}

// MiddlewareRequestID кладёт в контекст id запроса и удалённый trace context.
// Порядок выбора id: X-Request-ID, trace id из traceparent, новый uuid.
func MiddlewareRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := traceContext.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
				reqID = sc.TraceID().String()
			} else {
				reqID = uuid.NewString()
			}
		}
		w.Header().Set(HeaderRequestID, reqID)

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxKey{}, reqID)))
	})
}

func FromContext(ctx context.Context) (string, bool) {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id, id != ""
}
