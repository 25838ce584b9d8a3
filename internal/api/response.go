package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// Problem is an RFC 7807 style error body, used for every error response
// except the two spec-fixed literal bodies (budget/unavailable) below.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id"`
}

func (p Problem) Error() string { return p.Title + ": " + p.Detail }

const (
	ProblemTypeValidation = "https://llm-router.example.com/problems/validation-error"
	ProblemTypeNotFound   = "https://llm-router.example.com/problems/not-found"
)

// ResponseWriter wraps an http.ResponseWriter with the request ID the
// reference server's middleware stamps onto every response.
type ResponseWriter struct {
	w         http.ResponseWriter
	requestID string
}

func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set("X-Request-ID", requestID)
	return &ResponseWriter{w: w, requestID: requestID}
}

func (rw *ResponseWriter) WriteJSON(status int, data interface{}) error {
	rw.w.Header().Set("Content-Type", "application/json")
	rw.w.WriteHeader(status)
	return json.NewEncoder(rw.w).Encode(data)
}

func (rw *ResponseWriter) WriteProblem(problemType, title string, status int, detail string) error {
	return rw.WriteJSON(status, Problem{
		Type:      problemType,
		Title:     title,
		Status:    status,
		Detail:    detail,
		RequestID: rw.requestID,
	})
}

func (rw *ResponseWriter) WriteValidationError(detail string) error {
	return rw.WriteProblem(ProblemTypeValidation, "Validation Error", http.StatusBadRequest, detail)
}

func (rw *ResponseWriter) WriteNotFound(detail string) error {
	return rw.WriteProblem(ProblemTypeNotFound, "Not Found", http.StatusNotFound, detail)
}

// detailBody is the literal {"detail": "..."} shape spec.md §6 fixes for
// the budget-exceeded and all-providers-unavailable responses, breaking
// from the Problem envelope used everywhere else.
type detailBody struct {
	Detail string `json:"detail"`
}

func (rw *ResponseWriter) WriteDetail(status int, detail string) error {
	return rw.WriteJSON(status, detailBody{Detail: detail})
}
