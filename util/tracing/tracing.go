package tracing

// Context identifies a single inbound request across log lines and responses.
type Context struct {
	RequestID     string `json:"request_id"`
	RequestSource string `json:"request_source"`
}
