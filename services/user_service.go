package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lms-ai-backend/internal/auth"
	"lms-ai-backend/internal/config"
	"lms-ai-backend/internal/logger"
	"lms-ai-backend/models"
	"lms-ai-backend/utils"
)

// TokenIssuer is the part of auth.TokenManager the user service needs.
type TokenIssuer interface {
	IssueTokenPair(ctx context.Context, userID, email string) (*auth.TokenPair, error)
	ValidateRefreshToken(ctx context.Context, tokenString string) (*auth.Claims, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Revoke(ctx context.Context, accessJTI, refreshJTI string) error
}

type UserService struct {
	users      *mongo.Collection
	tokens     TokenIssuer
	bcryptCost int
	now        func() time.Time
}

func NewUserService(db *mongo.Database, tokens TokenIssuer, bcryptCost int) *UserService {
	return &UserService{
		users:      db.Collection(config.CollectionUsers),
		tokens:     tokens,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

var errInvalidCredentials = utils.NewUnauthorized("Invalid credentials")

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func tokenResponse(pair *auth.TokenPair, user *models.User) *models.TokenPairResponse {
	return &models.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		AccessExp:    pair.AccessExp,
		RefreshExp:   pair.RefreshExp,
		User:         user.Info(),
	}
}

// profileUpdate returns the $set document for the non-empty fields of req, or
// nil when there is nothing to change.
func profileUpdate(req models.UpdateProfileRequest, now time.Time) bson.M {
	set := bson.M{}
	if v := strings.TrimSpace(req.Username); v != "" {
		set["username"] = v
	}
	if v := normalizeEmail(req.Email); v != "" {
		set["email"] = v
	}
	if v := strings.TrimSpace(req.ProfileImage); v != "" {
		set["profile_image"] = v
	}
	if len(set) == 0 {
		return nil
	}
	set["updated_at"] = now
	return set
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.TokenPairResponse, error) {
	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	count, err := s.users.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}})
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewBadRequest("User already exists")
	}

	hash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssueTokenPair(ctx, user.ID.Hex(), user.Email)
	if err != nil {
		return nil, err
	}
	logger.Info("User registered", "user_id", user.ID.Hex())
	return tokenResponse(pair, user), nil
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenPairResponse, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"email": normalizeEmail(req.Email)}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return nil, errInvalidCredentials
	}

	pair, err := s.tokens.IssueTokenPair(ctx, user.ID.Hex(), user.Email)
	if err != nil {
		return nil, err
	}
	return tokenResponse(pair, &user), nil
}

// Refresh rotates the refresh token of a user that still exists.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPairResponse, error) {
	if refreshToken == "" {
		return nil, utils.NewUnauthorized("Refresh token is required")
	}
	claims, err := s.tokens.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return tokenResponse(pair, user), nil
}

// Logout revokes the access token and, if one is given and valid, the refresh
// token of the same user.
func (s *UserService) Logout(ctx context.Context, access *auth.Claims, refreshToken string) error {
	refreshJTI := ""
	if refreshToken != "" {
		if claims, err := s.tokens.ValidateRefreshToken(ctx, refreshToken); err == nil && claims.UserID == access.UserID {
			refreshJTI = claims.ID
		}
	}
	return s.tokens.Revoke(ctx, access.ID, refreshJTI)
}

func (s *UserService) Profile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, req models.UpdateProfileRequest) (*models.User, error) {
	set := profileUpdate(req, s.now())
	if set == nil {
		return s.Profile(ctx, userID)
	}

	var user models.User
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID primitive.ObjectID, req models.ChangePasswordRequest) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		return utils.NewUnauthorized("Current password is incorrect")
	}
	if req.CurrentPassword == req.NewPassword {
		return utils.NewBadRequest("New password must be different from the current password")
	}

	hash, err := utils.HashPassword(req.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	_, err = s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": s.now()}},
	)
	return err
}
