package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"lms-ai-backend/internal/ai"
	"lms-ai-backend/internal/auth"
	"lms-ai-backend/internal/chunking"
	"lms-ai-backend/internal/logger"
	"lms-ai-backend/utils"
)

var duplicateIndex = regexp.MustCompile(`index: (?:\w+\.\$)?([A-Za-z0-9]+)_`)

// ErrorHandler turns the last error attached with c.Error into the standard
// error response. Handlers that already wrote a response are left alone.
func ErrorHandler(maxFileSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := classify(err, maxFileSize)
		if appErr.Status >= http.StatusInternalServerError {
			logger.FromContext(c.Request.Context()).Error("Request failed",
				"error", err,
				"path", c.Request.URL.Path,
			)
		}
		utils.RespondWithError(c, appErr.Status, appErr.Code, appErr.Message, appErr.Details)
	}
}

func classify(err error, maxFileSize int64) *utils.AppError {
	var (
		appErr      *utils.AppError
		maxBytesErr *http.MaxBytesError
		validation  validator.ValidationErrors
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, mongo.ErrNoDocuments):
		return utils.NewNotFound("Resource not found")
	case errors.Is(err, primitive.ErrInvalidHex):
		return utils.NewNotFound("Resource not found")
	case mongo.IsDuplicateKeyError(err):
		return utils.NewBadRequest(duplicateMessage(err))
	case errors.Is(err, chunking.ErrInvalidArgument):
		return utils.NewBadRequest(err.Error())
	case errors.As(err, &maxBytesErr), errors.Is(err, multipart.ErrMessageTooLarge):
		return utils.NewBadRequest(fmt.Sprintf("File size exceeds the maximum limit of %dMB", maxFileSize/(1024*1024)))
	case errors.Is(err, auth.ErrExpiredToken), errors.Is(err, jwt.ErrTokenExpired):
		return utils.NewAppError(http.StatusUnauthorized, "token_expired", "Token expired", nil)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrRevokedToken), errors.Is(err, jwt.ErrTokenMalformed):
		return utils.NewAppError(http.StatusUnauthorized, "invalid_token", "Invalid token", nil)
	case errors.Is(err, ai.ErrQuotaExceeded):
		return utils.NewAppError(http.StatusTooManyRequests, "quota_exceeded", "Daily AI quota exceeded", nil)
	case errors.Is(err, ai.ErrGeneratorUnavailable):
		return utils.NewAppError(http.StatusServiceUnavailable, "ai_unavailable", "AI service is temporarily unavailable, please retry shortly", nil)
	case errors.As(err, &validation):
		details := make(map[string]string, len(validation))
		for _, fe := range validation {
			details[fe.Field()] = fe.Tag()
		}
		return utils.NewValidationError("Invalid request", details)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return utils.NewBadRequest("Invalid request body")
	default:
		return utils.NewAppError(http.StatusInternalServerError, "internal_error", "Server Error", err)
	}
}

func duplicateMessage(err error) string {
	if m := duplicateIndex.FindStringSubmatch(err.Error()); m != nil {
		return m[1] + " already exists"
	}
	return "Duplicate value already exists"
}

// NotFoundHandler answers unmatched routes.
func NotFoundHandler(c *gin.Context) {
	utils.RespondWithError(c, http.StatusNotFound, "not_found", "Route not found", nil)
}
