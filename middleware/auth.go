package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"lms-ai-backend/internal/auth"
	"lms-ai-backend/utils"
)

const (
	ctxUserID = "user_id"
	ctxEmail  = "user_email"
	ctxClaims = "claims"
)

// TokenValidator checks access tokens.
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, tokenString string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth accepts a bearer token or the access_token cookie and stores the
// caller's identity in the context.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			c.Error(utils.NewUnauthorized("Not authorized, no token"))
			c.Abort()
			return
		}

		claims, err := a.tokens.ValidateAccessToken(c.Request.Context(), tokenString)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}
		if _, err := primitive.ObjectIDFromHex(claims.UserID); err != nil {
			c.Error(utils.NewUnauthorized("Not authorized, token failed"))
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// UserObjectID returns the authenticated user's ID.
func UserObjectID(c *gin.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(GetUserID(c))
	if err != nil {
		return primitive.NilObjectID, utils.NewUnauthorized("Not authorized")
	}
	return id, nil
}

func GetClaims(c *gin.Context) (*auth.Claims, error) {
	if v, ok := c.Get(ctxClaims); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims, nil
		}
	}
	return nil, errors.New("no claims in context")
}
