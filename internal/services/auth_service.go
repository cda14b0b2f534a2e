package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/IMSA-2025/portal-service/internal/auth"
	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
	"github.com/IMSA-2025/portal-service/internal/validator"
)

type authService struct {
	repo      repositories.Repository
	tokens    *auth.TokenService
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAuthService(repo repositories.Repository, tokens *auth.TokenService, logger *slog.Logger, v *validator.Validator) AuthService {
	return &authService{
		repo:      repo,
		tokens:    tokens,
		logger:    logger,
		validator: v,
	}
}

// Register creates a new account. Self-registration always produces a
// plain unpaid user; roles and fee status are granted later by an admin.
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	studentID := strings.TrimSpace(req.StudentID)

	if _, err := s.repo.User().GetByUsername(ctx, username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	if _, err := s.repo.User().GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	if _, err := s.repo.User().GetByStudentID(ctx, studentID); err == nil {
		return nil, ErrDuplicateStudentID
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		StudentID:    studentID,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         models.RoleUser,
		FeePaid:      false,
	}

	if err := s.repo.User().Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, Tokens: *tokens}, nil
}

// Login authenticates by username, email or student id. The same error is
// returned for unknown accounts and wrong passwords.
func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.findByLogin(ctx, strings.TrimSpace(req.Login))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("user logged in", "user_id", user.ID)

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, Tokens: *tokens}, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair. The
// account is re-read so revoked or re-roled users get current claims.
func (s *authService) Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	claims, err := s.tokens.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	user, err := s.repo.User().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	return s.issueTokens(user)
}

func (s *authService) ChangePassword(ctx context.Context, userID uint, req ChangePasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	if err := s.repo.User().Update(ctx, user); err != nil {
		return err
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

func (s *authService) findByLogin(ctx context.Context, login string) (*models.User, error) {
	if strings.Contains(login, "@") {
		return s.repo.User().GetByEmail(ctx, strings.ToLower(login))
	}
	user, err := s.repo.User().GetByUsername(ctx, login)
	if err == nil || !errors.Is(err, repositories.ErrNotFound) {
		return user, err
	}
	return s.repo.User().GetByStudentID(ctx, login)
}

func (s *authService) issueTokens(user *models.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(s.tokens.AccessTTL()),
	}, nil
}
