package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/IMSA-2025/portal-service/internal/cache"
	"github.com/IMSA-2025/portal-service/internal/events"
	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
	"github.com/IMSA-2025/portal-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	publisher events.Publisher
	cache     *cache.CacheManager
	logger    *slog.Logger
	validator *validator.Validator
}

func NewUserService(repo repositories.Repository, publisher events.Publisher, cm *cache.CacheManager, logger *slog.Logger, v *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		publisher: publisher,
		cache:     cm,
		logger:    logger,
		validator: v,
	}
}

func (s *userService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, actor *models.User, filters repositories.UserFilters) (*UserListResponse, error) {
	if !actor.IsAdmin() {
		return nil, NewPermissionError("list users")
	}

	users, total, err := s.repo.User().List(ctx, filters)
	if err != nil {
		return nil, err
	}

	page, size := pageFromFilters(filters.Limit, filters.Offset)
	return &UserListResponse{Users: users, Total: total, Page: page, Size: size}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			if _, err := s.repo.User().GetByEmail(ctx, email); err == nil {
				return nil, ErrDuplicateEmail
			} else if !errors.Is(err, repositories.ErrNotFound) {
				return nil, err
			}
			user.Email = email
		}
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}

	if err := s.repo.User().Update(ctx, user); err != nil {
		return nil, err
	}
	s.invalidateUser(ctx, userID)
	return user, nil
}

// SetRole changes a user's role. Demoting the last admin is rejected; the
// check and the write run in one transaction so two concurrent demotions
// cannot both pass the count.
func (s *userService) SetRole(ctx context.Context, actor *models.User, targetID uint, req SetRoleRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, NewPermissionError("change roles")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	newRole := models.UserRole(req.Role)
	var updated *models.User

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		user, err := tx.User().GetByID(ctx, targetID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if user.Role == models.RoleAdmin && newRole != models.RoleAdmin {
			admins, err := tx.User().CountAdmins(ctx)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		user.Role = newRole
		if err := tx.User().Update(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUser(ctx, targetID)
	s.publish(events.TypeUserRoleChanged, actor.ID, map[string]interface{}{
		"user_id": targetID,
		"role":    newRole,
	})
	s.logger.Info("role changed", "actor_id", actor.ID, "user_id", targetID, "role", newRole)
	return updated, nil
}

func (s *userService) SetFeePaid(ctx context.Context, actor *models.User, targetID uint, req SetFeePaidRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, NewPermissionError("change fee status")
	}

	user, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	user.FeePaid = req.FeePaid
	if err := s.repo.User().Update(ctx, user); err != nil {
		return nil, err
	}

	s.invalidateUser(ctx, targetID)
	s.publish(events.TypeUserFeeChanged, actor.ID, map[string]interface{}{
		"user_id":  targetID,
		"fee_paid": req.FeePaid,
	})
	return user, nil
}

// Delete removes an account. Uploaded files and reviews survive and render
// with a placeholder attribution. Admins cannot delete themselves, and the
// last admin cannot be deleted.
func (s *userService) Delete(ctx context.Context, actor *models.User, targetID uint) error {
	if !actor.IsAdmin() {
		return NewPermissionError("delete users")
	}
	if actor.ID == targetID {
		return ErrSelfDelete
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		user, err := tx.User().GetByID(ctx, targetID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if user.Role == models.RoleAdmin {
			admins, err := tx.User().CountAdmins(ctx)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		return tx.User().Delete(ctx, targetID)
	})
	if err != nil {
		return err
	}

	s.invalidateUser(ctx, targetID)
	s.publish(events.TypeUserDeleted, actor.ID, map[string]interface{}{"user_id": targetID})
	s.logger.Info("user deleted", "actor_id", actor.ID, "user_id", targetID)
	return nil
}

func (s *userService) invalidateUser(ctx context.Context, id uint) {
	if s.cache != nil {
		_ = s.cache.User.Delete(ctx, cacheKeyID(id))
	}
}

func (s *userService) publish(eventType string, actorID uint, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(eventType, actorID, data); err != nil {
		s.logger.Warn("event publish failed", "type", eventType, "error", err)
	}
}
