package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gamecatalog/visibility-backend/internal/apperr"
	"github.com/gamecatalog/visibility-backend/internal/auth"
	"github.com/gamecatalog/visibility-backend/internal/dto"
	"github.com/gamecatalog/visibility-backend/internal/models"
	"github.com/gamecatalog/visibility-backend/internal/store"
	"github.com/gamecatalog/visibility-backend/internal/validation"
	"github.com/google/uuid"
)

var ErrSelfDemotion = errors.New("admins cannot remove their own admin role")

type ProfileService struct {
	users    store.UserStore
	hydrator *auth.Hydrator
}

func NewProfileService(users store.UserStore) *ProfileService {
	return &ProfileService{users: users, hydrator: auth.NewHydrator(users)}
}

// UpdateProfile edits display attributes and returns the re-hydrated principal.
func (s *ProfileService) UpdateProfile(ctx context.Context, p auth.Principal, req *dto.UpdateProfileRequest) (auth.Principal, error) {
	if !p.Authenticated() {
		return auth.Principal{}, apperr.ErrUnauthenticated
	}
	if err := validation.Struct(req); err != nil {
		return auth.Principal{}, err
	}
	update := store.ProfileUpdate{Name: req.Name, Image: req.Image, Alias: req.Alias, Bio: req.Bio}
	if err := s.users.UpdateUserProfile(ctx, p.SubjectID(), update); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return auth.Principal{}, apperr.ErrUnauthenticated
		}
		return auth.Principal{}, apperr.Persistence("update profile", err)
	}
	return s.hydrator.Hydrate(ctx, p.SubjectID())
}

// SetRole changes a user's role. It takes effect on the target's next
// request because every request re-hydrates.
func (s *ProfileService) SetRole(ctx context.Context, actor auth.Principal, target uuid.UUID, rawRole string) error {
	if !actor.Authenticated() {
		return apperr.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return apperr.ErrForbidden
	}
	role, ok := auth.ParseRole(rawRole)
	if !ok {
		return apperr.Validation("role", "must be one of: user, admin")
	}
	if target == actor.SubjectID() && role != auth.RoleAdmin {
		return ErrSelfDemotion
	}
	if err := s.users.SetUserRole(ctx, target, string(role)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Validation("id", "does not match a user")
		}
		return apperr.Persistence("set role", err)
	}
	slog.Info("role changed", "user_id", actor.SubjectID().String(), "target_id", target.String(), "role", string(role))
	return nil
}

// BootstrapAdmins promotes the configured emails once at startup.
func (s *ProfileService) BootstrapAdmins(ctx context.Context, emails []string) (int64, error) {
	n, err := s.users.SetRoleByEmails(ctx, emails, models.RoleAdmin)
	if err != nil {
		return 0, apperr.Persistence("bootstrap admins", err)
	}
	return n, nil
}
