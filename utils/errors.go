package utils

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Success   bool        `json:"success"`
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// AppError is an error that already knows its HTTP status and client-facing message.
type AppError struct {
	Status  int
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{Status: status, Code: code, Message: message, Err: err}
}

func NewBadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, "bad_request", message, nil)
}

func NewValidationError(message string, details interface{}) *AppError {
	e := NewAppError(http.StatusBadRequest, "validation_error", message, nil)
	e.Details = details
	return e
}

func NewUnauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, "unauthorized", message, nil)
}

func NewNotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, "not_found", message, nil)
}

func NewConflict(message string) *AppError {
	return NewAppError(http.StatusConflict, "conflict", message, nil)
}

func NewBadGateway(code, message string, err error) *AppError {
	return NewAppError(http.StatusBadGateway, code, message, err)
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		Success:   false,
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithData sends a successful response envelope.
func RespondWithData(c *gin.Context, statusCode int, data interface{}, message string) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(statusCode, body)
}
