package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const issuer = "lms-ai-backend"

const (
	accessPrefix  = "access:"
	refreshPrefix = "refresh:"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrRevokedToken = errors.New("token revoked or expired")
)

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"access_exp"`
	RefreshExp   time.Time `json:"refresh_exp"`
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenStore remembers live token IDs so they can be revoked before expiry.
type TokenStore interface {
	Save(ctx context.Context, key, userID string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	store         TokenStore
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, store TokenStore) (*TokenManager, error) {
	if len(accessSecret) < 32 || len(refreshSecret) < 32 {
		return nil, fmt.Errorf("access and refresh secrets must be at least 32 characters")
	}
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		store:         store,
		now:           time.Now,
	}, nil
}

func (m *TokenManager) IssueTokenPair(ctx context.Context, userID, email string) (*TokenPair, error) {
	now := m.now()
	accessJTI := uuid.NewString()
	refreshJTI := uuid.NewString()

	accessExp := now.Add(m.accessTTL)
	accessString, err := m.sign(m.accessSecret, userID, email, accessJTI, now, accessExp)
	if err != nil {
		return nil, err
	}

	refreshExp := now.Add(m.refreshTTL)
	refreshString, err := m.sign(m.refreshSecret, userID, email, refreshJTI, now, refreshExp)
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, accessPrefix+accessJTI, userID, m.accessTTL); err != nil {
		return nil, fmt.Errorf("store access token: %w", err)
	}
	if err := m.store.Save(ctx, refreshPrefix+refreshJTI, userID, m.refreshTTL); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessString,
		RefreshToken: refreshString,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (m *TokenManager) sign(secret []byte, userID, email, jti string, issued, expires time.Time) (string, error) {
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(issued),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *TokenManager) ValidateAccessToken(ctx context.Context, tokenString string) (*Claims, error) {
	return m.validate(ctx, tokenString, m.accessSecret, accessPrefix)
}

func (m *TokenManager) ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error) {
	return m.validate(ctx, tokenString, m.refreshSecret, refreshPrefix)
}

func (m *TokenManager) validate(ctx context.Context, tokenString string, secret []byte, prefix string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Prevent algorithm confusion attacks
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	exists, err := m.store.Exists(ctx, prefix+claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token: %w", err)
	}
	if !exists {
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new pair
// is issued.
func (m *TokenManager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := m.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if err := m.store.Delete(ctx, refreshPrefix+claims.ID); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	return m.IssueTokenPair(ctx, claims.UserID, claims.Email)
}

// Revoke deletes the access token ID and, when present, the refresh token ID.
func (m *TokenManager) Revoke(ctx context.Context, accessJTI, refreshJTI string) error {
	keys := []string{accessPrefix + accessJTI}
	if refreshJTI != "" {
		keys = append(keys, refreshPrefix+refreshJTI)
	}
	return m.store.Delete(ctx, keys...)
}

// ExtractBearerToken returns the token of an "Authorization: Bearer <token>" header.
func ExtractBearerToken(authHeader string) string {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// RedisTokenStore keeps token IDs as expiring Redis keys.
type RedisTokenStore struct {
	rdb *redis.Client
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func (s *RedisTokenStore) Save(ctx context.Context, key, userID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, userID, ttl).Err()
}

func (s *RedisTokenStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, keys ...string) error {
	return s.rdb.Del(ctx, keys...).Err()
}
