package rest

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ammoru/pulseroom/util"
	"github.com/ammoru/pulseroom/util/tracing"
)

// ServerResponse is what every gateway handler returns. Success responses
// carry Data as the response body; failures carry {"message": ...} so the
// client can surface the text verbatim.
type ServerResponse struct {
	Message    string
	Status     string
	StatusCode int
	Data       interface{}
	Err        error
}

type errorBody struct {
	Message string `json:"message"`
}

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)

	var body interface{}
	switch {
	case resp.StatusCode >= http.StatusBadRequest:
		body = errorBody{Message: resp.Message}
	case resp.Data != nil:
		body = resp.Data
	default:
		body = errorBody{Message: resp.Message}
	}

	respByte, err := json.Marshal(body)
	if err != nil {
		writeErrorResponse(w, err, http.StatusInternalServerError, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

func writeJSONResponse(w http.ResponseWriter, body []byte, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		log.Printf("failed to write response body: %v", err)
	}
}

func writeErrorResponse(w http.ResponseWriter, err error, statusCode int, message string) {
	log.Printf("request failed (%d %s): %v", statusCode, message, err)

	body, marshalErr := json.Marshal(errorBody{Message: message})
	if marshalErr != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, body, statusCode)
}

// respondWithError logs the underlying error with the tracing context and
// shapes the user-visible failure.
func respondWithError(err error, message string, status string, tc *tracing.Context) *ServerResponse {
	log.Printf("[%s] %s: %v", tc.RequestID, message, err)

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Err:        err,
	}
}
