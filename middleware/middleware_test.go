package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"lms-ai-backend/internal/ai"
	"lms-ai-backend/internal/auth"
	"lms-ai-backend/internal/chunking"
	"lms-ai-backend/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var body utils.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestErrorHandler(t *testing.T) {
	dupErr := mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: `E11000 duplicate key error collection: lms.users index: email_1 dup key: { email: "a@b.c" }`,
	}}}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"app error", utils.NewNotFound("Quiz not found"), http.StatusNotFound, "not_found", "Quiz not found"},
		{"wrapped app error", fmt.Errorf("load: %w", utils.NewConflict("dup")), http.StatusConflict, "conflict", "dup"},
		{"no documents", fmt.Errorf("find: %w", mongo.ErrNoDocuments), http.StatusNotFound, "not_found", "Resource not found"},
		{"bad object id", primitive.ErrInvalidHex, http.StatusNotFound, "not_found", "Resource not found"},
		{"duplicate key", dupErr, http.StatusBadRequest, "bad_request", "email already exists"},
		{"chunking argument", fmt.Errorf("%w: chunk size must be positive", chunking.ErrInvalidArgument), http.StatusBadRequest, "bad_request", ""},
		{"body too large", &http.MaxBytesError{Limit: 10 << 20}, http.StatusBadRequest, "bad_request", "File size exceeds the maximum limit of 10MB"},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized, "token_expired", "Token expired"},
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized, "invalid_token", "Invalid token"},
		{"quota", fmt.Errorf("chat: %w", ai.ErrQuotaExceeded), http.StatusTooManyRequests, "quota_exceeded", ""},
		{"generator down", fmt.Errorf("quiz generation failed: %w", ai.ErrGeneratorUnavailable), http.StatusServiceUnavailable, "ai_unavailable", ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error", "Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler(10 << 20))
			r.GET("/x", func(c *gin.Context) { c.Error(tt.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			body := decodeError(t, w)
			if body.Success || body.ErrorCode != tt.wantCode {
				t.Errorf("body = %+v", body)
			}
			if tt.wantMsg != "" && body.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", body.Message, tt.wantMsg)
			}
		})
	}
}

func TestErrorHandlerBindingErrors(t *testing.T) {
	type request struct {
		Email string `json:"email" binding:"required,email"`
	}

	r := gin.New()
	r.Use(ErrorHandler(10 << 20))
	r.POST("/x", func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		body     string
		wantCode string
	}{
		{`{"email":"not-an-email"}`, "validation_error"},
		{`{"email":`, "bad_request"},
		{``, "bad_request"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body)))
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", tt.body, w.Code)
			continue
		}
		if got := decodeError(t, w).ErrorCode; got != tt.wantCode {
			t.Errorf("body %q: code = %q, want %q", tt.body, got, tt.wantCode)
		}
	}
}

func TestErrorHandlerLeavesWrittenResponses(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(10 << 20))
	r.GET("/x", func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
		c.Error(errors.New("logged only"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d", w.Code)
	}
}

type fakeValidator struct {
	claims *auth.Claims
	err    error
	got    string
}

func (f *fakeValidator) ValidateAccessToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	f.got = tokenString
	return f.claims, f.err
}

func TestRequireAuth(t *testing.T) {
	userID := primitive.NewObjectID().Hex()

	tests := []struct {
		name       string
		header     string
		cookie     string
		validator  *fakeValidator
		wantStatus int
		wantToken  string
	}{
		{"bearer header", "Bearer abc", "", &fakeValidator{claims: &auth.Claims{UserID: userID}}, http.StatusOK, "abc"},
		{"cookie", "", "xyz", &fakeValidator{claims: &auth.Claims{UserID: userID}}, http.StatusOK, "xyz"},
		{"missing token", "", "", &fakeValidator{}, http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", "", &fakeValidator{}, http.StatusUnauthorized, ""},
		{"expired", "Bearer abc", "", &fakeValidator{err: auth.ErrExpiredToken}, http.StatusUnauthorized, "abc"},
		{"bad subject", "Bearer abc", "", &fakeValidator{claims: &auth.Claims{UserID: "nope"}}, http.StatusUnauthorized, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler(10 << 20))
			r.GET("/me", NewAuthMiddleware(tt.validator).RequireAuth(), func(c *gin.Context) {
				id, err := UserObjectID(c)
				if err != nil {
					c.Error(err)
					return
				}
				c.String(http.StatusOK, id.Hex())
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.validator.got != tt.wantToken {
				t.Errorf("validated token = %q, want %q", tt.validator.got, tt.wantToken)
			}
			if tt.wantStatus == http.StatusOK && w.Body.String() != userID {
				t.Errorf("user id = %q", w.Body.String())
			}
		})
	}
}

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestRateLimitMiddleware(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}}
	r := gin.New()
	r.Use(RateLimitMiddleware(counter, 2, time.Minute))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes[i] = w.Code
		if i == 0 && w.Header().Get("X-RateLimit-Remaining") != "1" {
			t.Errorf("remaining = %q", w.Header().Get("X-RateLimit-Remaining"))
		}
		if i == 2 && w.Header().Get("Retry-After") != "60" {
			t.Errorf("retry after = %q", w.Header().Get("Retry-After"))
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("health limited: %d", w.Code)
		}
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(&fakeCounter{err: errors.New("redis down")}, 1, time.Minute))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware(), RequestLogger())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get(RequestIDHeader)
	if generated == "" || w.Body.String() != generated {
		t.Errorf("generated id = %q, body = %q", generated, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("propagated id = %q", got)
	}
}

func TestRequestSizeLimit(t *testing.T) {
	const maxFileSize = 10 << 20
	r := gin.New()
	r.Use(ErrorHandler(maxFileSize), RequestSizeLimit(16))
	r.POST("/x", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})

	declared := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(strings.Repeat("x", 32)))
	undeclared := httptest.NewRequest(http.MethodPost, "/x", io.NopCloser(strings.NewReader(strings.Repeat("x", 32))))
	undeclared.ContentLength = -1

	for name, req := range map[string]*http.Request{"declared length": declared, "undeclared length": undeclared} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if body := decodeError(t, w); body.Message != "File size exceeds the maximum limit of 10MB" {
				t.Errorf("message = %q", body.Message)
			}
		})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("0123")))
	if w.Code != http.StatusOK {
		t.Errorf("small body status = %d", w.Code)
	}
}
