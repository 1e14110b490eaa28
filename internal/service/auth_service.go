package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/leadstack/lead-service/internal/auth"
	"github.com/leadstack/lead-service/internal/config"
	"github.com/leadstack/lead-service/internal/domain"
	"github.com/leadstack/lead-service/internal/repository"
	apperrors "github.com/leadstack/lead-service/pkg/util"
)

// TokenPair bundles a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService coordinates registration, login and token rotation. Issued
// tokens are stored on the user row, so a user has at most one active
// session: a new login or refresh invalidates whatever was issued before.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.Auth.RefreshTokenTTLHours),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates a new account and issues its first token pair.
func (s *AuthService) Register(ctx context.Context, firstName, lastName, email, password string) (*domain.User, TokenPair, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, TokenPair{}, apperrors.NewValidationError("Email already exists")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, TokenPair{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, TokenPair{}, err
	}

	user := &domain.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, TokenPair{}, err
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Login authenticates a user and rotates the stored token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, TokenPair{}, apperrors.NewUnauthorized("Invalid email or password")
		}
		return nil, TokenPair{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, TokenPair{}, apperrors.NewUnauthorized("Invalid email or password")
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh validates a presented refresh token against the stored one and
// rotates the access token. The refresh token itself stays valid.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokenMgr.ParseToken(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return "", apperrors.NewUnauthorized("Invalid or expired refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewUnauthorized("Invalid or expired refresh token")
		}
		return "", err
	}
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return "", apperrors.NewUnauthorized("Invalid or expired refresh token")
	}

	accessToken, _, err := s.tokenMgr.GenerateAccessToken(user.ID)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateAccessToken(ctx, user.ID, &accessToken); err != nil {
		return "", err
	}
	return accessToken, nil
}

// GetUser loads the profile of an authenticated user.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, err
	}
	return user, nil
}

// Logout clears the stored token pair so refresh attempts after logout fail.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.users.ClearTokens(ctx, userID)
}

// TokenManager exposes the underlying token manager for middleware and
// cookie TTL wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (TokenPair, error) {
	accessToken, _, err := s.tokenMgr.GenerateAccessToken(user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, _, err := s.tokenMgr.GenerateRefreshToken(user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.users.UpdateTokens(ctx, user.ID, &accessToken, &refreshToken); err != nil {
		return TokenPair{}, err
	}
	user.AccessToken = &accessToken
	user.RefreshToken = &refreshToken
	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
