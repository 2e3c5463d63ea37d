package helpers

import (
	"encoding/json"
	"errors"
	"net/http"

	"oriyet/internal/domain"
)

// Error codes for API error responses that do not come from a domain.Error.
// Business rejections use their domain.ErrorKind as the code.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeForbidden          = "forbidden"
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
)

// APIError is the error object in the standardized API response envelope.
// swagger:model APIError
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the standardized envelope for all API responses.
// On success: Data is set, Error is nil. On error: Data is nil, Error is set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSONSuccess sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with the given data and error set to nil.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Data: data, Error: nil})
}

// WriteJSONError sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with data nil and the given error code and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Data:  nil,
		Error: &APIError{Code: code, Message: message},
	})
}

// ErrorStatus maps a service error to its HTTP status and error code.
func ErrorStatus(err error) (int, string) {
	var de *domain.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case domain.KindNotFound:
			return http.StatusNotFound, string(de.Kind)
		case domain.KindUserMismatch, domain.KindForbidden:
			return http.StatusForbidden, string(de.Kind)
		case domain.KindUnauthorized:
			return http.StatusUnauthorized, string(de.Kind)
		case domain.KindLookupNotFound:
			return http.StatusInternalServerError, ErrCodeInternalError
		default:
			return http.StatusBadRequest, string(de.Kind)
		}
	}
	if errors.Is(err, domain.ErrTransient) {
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// WriteError writes err using ErrorStatus. Business messages are returned as is;
// infrastructure details are not exposed.
func WriteError(w http.ResponseWriter, err error) {
	status, code := ErrorStatus(err)
	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		message = "service temporarily unavailable, please retry"
	case http.StatusInternalServerError:
		message = "internal server error"
	}
	WriteJSONError(w, status, code, message)
}
