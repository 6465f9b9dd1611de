package rest

import (
	"context"
	"net/http"

	"github.com/ammoru/pulseroom/util/tracing"
	"github.com/ammoru/pulseroom/util/values"
	"github.com/lucsky/cuid"
)

// RequestTracing attaches a tracing context to every request. Browser
// clients do not send tracing headers, so both fall back to defaults.
func RequestTracing(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestSource := r.Header.Get(values.HeaderRequestSource)
		if requestSource == "" {
			requestSource = "web"
		}

		requestID := r.Header.Get(values.HeaderRequestID)
		if requestID == "" {
			requestID = cuid.New()
		}

		tracingContext := tracing.Context{
			RequestID:     requestID,
			RequestSource: requestSource,
		}

		ctx = context.WithValue(ctx, values.ContextTracingKey, tracingContext)
		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}
