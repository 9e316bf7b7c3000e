package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamecatalog/visibility-backend/internal/apperr"
	"github.com/gamecatalog/visibility-backend/internal/auth"
	"github.com/gamecatalog/visibility-backend/internal/config"
	"github.com/gamecatalog/visibility-backend/internal/dto"
	"github.com/gamecatalog/visibility-backend/internal/models"
	"github.com/gamecatalog/visibility-backend/internal/store"
	"github.com/gamecatalog/visibility-backend/internal/validation"
	"github.com/google/uuid"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidToken = errors.New("invalid or expired refresh token")
)

type AuthService struct {
	users         store.UserStore
	refreshTokens store.RefreshTokenStore
	authenticator *auth.Authenticator
	hydrator      *auth.Hydrator
	issuer        *auth.TokenIssuer
	cfg           *config.Config
	now           func() time.Time
}

func NewAuthService(users store.UserStore, refreshTokens store.RefreshTokenStore, issuer *auth.TokenIssuer, cfg *config.Config) *AuthService {
	return &AuthService{
		users:         users,
		refreshTokens: refreshTokens,
		authenticator: auth.NewAuthenticator(users, cfg.PasswordMinLength),
		hydrator:      auth.NewHydrator(users),
		issuer:        issuer,
		cfg:           cfg,
		now:           time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := auth.NormalizeEmail(req.Email)
	if err := s.authenticator.ValidateCredentials(email, req.Password); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Persistence("check email", err)
	}

	hash, err := auth.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		Password:     hash,
		Role:         models.RoleUser,
		Name:         req.Name,
		AuthProvider: models.ProviderEmail,
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, apperr.Persistence("create user", err)
	}

	slog.Info("user registered", "user_id", user.ID.String())
	return s.issueSession(ctx, user.ID)
}

// Login authenticates credentials. Every credential failure is reported as
// auth.ErrInvalidCredentials; the reason is only logged.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	principal, err := s.authenticator.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Info("login rejected", "reason", err.Error())
		}
		return nil, err
	}
	return s.issueSession(ctx, principal.SubjectID())
}

// Refresh rotates a refresh token. The subject is re-hydrated, so a deleted
// account cannot mint new sessions.
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	stored, err := s.refreshTokens.ConsumeRefreshToken(ctx, auth.HashRefreshToken(req.RefreshToken), s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, apperr.Persistence("consume refresh token", err)
	}
	return s.issueSession(ctx, stored.UserID)
}

func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if err := s.refreshTokens.RevokeRefreshToken(ctx, auth.HashRefreshToken(req.RefreshToken)); err != nil {
		return apperr.Persistence("revoke refresh token", err)
	}
	return nil
}

func (s *AuthService) issueSession(ctx context.Context, subjectID uuid.UUID) (*dto.AuthResponse, error) {
	principal, err := s.hydrator.Hydrate(ctx, subjectID)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthenticated) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	accessToken, exp, err := s.issuer.Issue(subjectID)
	if err != nil {
		return nil, err
	}

	raw, hash, err := auth.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	record := models.RefreshToken{
		ID:        uuid.New(),
		UserID:    subjectID,
		TokenHash: hash,
		ExpiresAt: s.now().Add(s.cfg.JWTRefreshExpiry),
	}
	if err := s.refreshTokens.CreateRefreshToken(ctx, &record); err != nil {
		return nil, apperr.Persistence("store refresh token", err)
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: raw,
		ExpiresAt:    exp,
		User:         dto.NewUserResponse(principal),
	}, nil
}
