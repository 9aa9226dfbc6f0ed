package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ms-eventgrid/internal/apperr"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now().UTC(),
	}
}

// WriteJSON writes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps err to its status and error code. Internal failures keep
// their detail out of the body when hideInternal is set.
func WriteError(w http.ResponseWriter, err error, hideInternal bool) {
	status := apperr.Status(err)
	resp := ErrorResponse("Internal server error", err.Error())
	resp.Code = apperr.CodeOf(err)

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
	} else if hideInternal {
		resp.Error = ""
	}
	WriteJSON(w, status, resp)
}

// WriteUnauthorized answers a request without valid credentials.
func WriteUnauthorized(w http.ResponseWriter, detail string) {
	resp := ErrorResponse("Authorization required", detail)
	resp.Code = "UNAUTHORIZED"
	WriteJSON(w, http.StatusUnauthorized, resp)
}

// DecodeJSON reads a single JSON document from body.
func DecodeJSON(body io.Reader, dst interface{}) error {
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", apperr.ErrValidation, err)
	}
	return nil
}
