package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"lms-ai-backend/internal/auth"
	"lms-ai-backend/models"
)

func TestProfileUpdate(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  models.UpdateProfileRequest
		want map[string]interface{}
	}{
		{"nothing to change", models.UpdateProfileRequest{Username: "  "}, nil},
		{
			"email is normalized",
			models.UpdateProfileRequest{Email: "  Ada@Example.COM "},
			map[string]interface{}{"email": "ada@example.com", "updated_at": now},
		},
		{
			"all fields",
			models.UpdateProfileRequest{Username: " ada ", Email: "a@b.co", ProfileImage: "https://img.example.com/a.png"},
			map[string]interface{}{"username": "ada", "email": "a@b.co", "profile_image": "https://img.example.com/a.png", "updated_at": now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := profileUpdate(tt.req, now)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("profileUpdate() = %v, want nil", got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("profileUpdate() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

type fakeTokens struct {
	refreshClaims *auth.Claims
	refreshErr    error
	revoked       [2]string
}

func (f *fakeTokens) IssueTokenPair(ctx context.Context, userID, email string) (*auth.TokenPair, error) {
	return &auth.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func (f *fakeTokens) ValidateRefreshToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	return f.refreshClaims, f.refreshErr
}

func (f *fakeTokens) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	return nil, errors.New("not used")
}

func (f *fakeTokens) Revoke(ctx context.Context, accessJTI, refreshJTI string) error {
	f.revoked = [2]string{accessJTI, refreshJTI}
	return nil
}

func TestLogout(t *testing.T) {
	access := &auth.Claims{UserID: "u1"}
	access.ID = "access-jti"

	refreshOf := func(userID string) *auth.Claims {
		c := &auth.Claims{UserID: userID}
		c.ID = "refresh-jti"
		return c
	}

	tests := []struct {
		name        string
		tokens      *fakeTokens
		refresh     string
		wantRefresh string
	}{
		{"access only", &fakeTokens{}, "", ""},
		{"matching refresh", &fakeTokens{refreshClaims: refreshOf("u1")}, "tok", "refresh-jti"},
		{"refresh of another user", &fakeTokens{refreshClaims: refreshOf("u2")}, "tok", ""},
		{"invalid refresh", &fakeTokens{refreshErr: auth.ErrInvalidToken}, "tok", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &UserService{tokens: tt.tokens, now: time.Now}
			if err := s.Logout(context.Background(), access, tt.refresh); err != nil {
				t.Fatalf("Logout() error = %v", err)
			}
			if tt.tokens.revoked != [2]string{"access-jti", tt.wantRefresh} {
				t.Errorf("revoked = %v", tt.tokens.revoked)
			}
		})
	}
}

func TestRefreshRequiresToken(t *testing.T) {
	s := &UserService{tokens: &fakeTokens{}, now: time.Now}
	if _, err := s.Refresh(context.Background(), ""); err == nil {
		t.Fatal("Refresh() expected error for empty token")
	}

	s = &UserService{tokens: &fakeTokens{refreshClaims: &auth.Claims{UserID: "not-an-id"}}, now: time.Now}
	if _, err := s.Refresh(context.Background(), "tok"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("Refresh() error = %v, want ErrInvalidToken", err)
	}
}
