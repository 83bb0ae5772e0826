package errors

import "net/http"

// APIError is returned by services and rendered by handlers as
// {"error":{code,message,details}}.
type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func New(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func Internal(message string) *APIError {
	if message == "" {
		message = "internal server error"
	}
	return New(http.StatusInternalServerError, "internal_error", message)
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, "unauthorized", message)
}

func NotFound(code, message string) *APIError {
	return New(http.StatusNotFound, code, message)
}

func Conflict(code, message string, details interface{}) *APIError {
	err := New(http.StatusConflict, code, message)
	err.Details = details
	return err
}

// PersistenceFailed reports a rejected remote round-trip. The caller's local
// state is preserved, so details usually carry it back to the client.
func PersistenceFailed(message string, details interface{}) *APIError {
	err := New(http.StatusBadGateway, "persistence_failed", message)
	err.Details = details
	return err
}

func Unprocessable(code, message string) *APIError {
	return New(http.StatusUnprocessableEntity, code, message)
}
