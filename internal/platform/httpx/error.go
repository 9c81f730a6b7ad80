package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/servana/storefront/internal/remote"
)

// Error represents the canonical JSON error envelope returned by the facade.
type Error struct {
	Code      string
	Message   string
	Status    int
	RequestID string
	Details   map[string]any
}

// NewError constructs a new Error with the provided parameters.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    sanitize(code, 80),
		Message: sanitize(message, 512),
		Status:  status,
	}
}

// WithRequestID sets the request identifier on the error payload.
func (e Error) WithRequestID(id string) Error {
	e.RequestID = sanitize(id, 80)
	return e
}

// WithDetails attaches additional JSON-serialisable metadata.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	copyDetails := make(map[string]any, len(details))
	for k, v := range details {
		copyDetails[k] = v
	}
	e.Details = copyDetails
	return e
}

// FromFailure maps engine failures onto the response envelope. Remote typed
// failures carry their server-supplied code and message through; anything
// unrecognised becomes an opaque internal error.
func FromFailure(err error) Error {
	var remoteErr *remote.Error
	if errors.As(err, &remoteErr) {
		status := remoteErr.HTTPStatus
		code := remoteErr.Code
		switch remoteErr.Kind {
		case remote.KindAuthentication:
			if status == 0 {
				status = http.StatusUnauthorized
			}
			if code == "" {
				code = "authentication_failed"
			}
		case remote.KindBusinessRule:
			if status == 0 {
				status = http.StatusUnprocessableEntity
			}
			if code == "" {
				code = "rejected"
			}
		default:
			status = http.StatusBadGateway
			if code == "" {
				code = "upstream_unavailable"
			}
		}
		httpErr := NewError(code, remoteErr.Message, status)
		if remoteErr.SupportContact != "" {
			httpErr = httpErr.WithDetails(map[string]any{"support_contact": remoteErr.SupportContact})
		}
		return httpErr
	}
	return NewError("internal_server_error", "internal server error", http.StatusInternalServerError)
}

// WriteError writes the structured error as JSON to the provided response writer.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	requestID := err.RequestID
	if requestID == "" {
		requestID = sanitize(middleware.GetReqID(ctx), 80)
	}

	payload := map[string]any{
		"error":   err.Code,
		"message": err.Message,
		"status":  status,
	}

	if requestID != "" {
		payload["request_id"] = requestID
	}
	for k, v := range err.Details {
		payload[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func sanitize(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
