package values

type contextKey string

// ContextTracingKey carries the per-request tracing context.
const ContextTracingKey = contextKey("tracing-context")

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderRequestSource = "X-Request-Source"
)

// Response statuses. util.StatusCode maps these to HTTP status codes.
const (
	Success        = "success"
	Created        = "created"
	Error          = "internal-error"
	BadRequestBody = "bad-request-body"
	NotFound       = "not-found"
	Conflict       = "conflict"
)
