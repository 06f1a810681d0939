package http

import (
	"encoding/json"
	"net/http"

	"ledger/internal/log"
)

// JSONResponse is a small builder for JSON replies.
type JSONResponse struct {
	statusCode int
	body       any
}

// NewJSONResponse starts a 200 response with no body.
func NewJSONResponse() *JSONResponse {
	return &JSONResponse{statusCode: http.StatusOK}
}

func (b *JSONResponse) Status(code int) *JSONResponse {
	b.statusCode = code
	return b
}

func (b *JSONResponse) Body(v any) *JSONResponse {
	b.body = v
	return b
}

// Write encodes the body after the status line. Encoding failures can only be logged
// at that point.
func (b *JSONResponse) Write(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)

	if b.body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response",
			log.FieldError, err,
			log.FieldStatusCode, b.statusCode)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

// ErrorResponse builds {"error": message} with the given status.
func ErrorResponse(statusCode int, message string) *JSONResponse {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponse {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponse {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponse {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// MessageResponse builds {"message": message} with status 200.
func MessageResponse(message string) *JSONResponse {
	return NewJSONResponse().Body(messageBody{Message: message})
}
