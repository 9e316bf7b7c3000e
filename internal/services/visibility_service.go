package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gamecatalog/visibility-backend/internal/apperr"
	"github.com/gamecatalog/visibility-backend/internal/auth"
	"github.com/gamecatalog/visibility-backend/internal/store"
)

type Action string

const (
	ActionHide    Action = "hide"
	ActionUnhide  Action = "unhide"
	ActionDelete  Action = "delete"
	ActionRestore Action = "restore"
)

const maxGameIDLength = 255

func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionHide, ActionUnhide, ActionDelete, ActionRestore:
		return Action(s), true
	}
	return "", false
}

// Privileged actions change the global axis and require the admin role.
func (a Action) Privileged() bool {
	return a == ActionDelete || a == ActionRestore
}

// VisibilityStatus is the pair of hidden sets for one caller. Callers compute
// the visible catalog as all games minus (Deleted ∪ Hidden).
type VisibilityStatus struct {
	Deleted []string `json:"deleted"`
	Hidden  []string `json:"hidden"`
}

// VisibilityService gates the two visibility axes. Every action is
// idempotent: repeating it converges to the same state and reports success.
// Concurrent hide/unhide for one key settle in commit order.
type VisibilityService struct {
	store store.VisibilityStore
	now   func() time.Time
}

func NewVisibilityService(s store.VisibilityStore) *VisibilityService {
	return &VisibilityService{store: s, now: time.Now}
}

// Apply validates the request, checks the role for privileged actions
// against the freshly hydrated principal and applies the transition.
func (s *VisibilityService) Apply(ctx context.Context, p auth.Principal, gameID, rawAction string) error {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return apperr.Validation("gameId", "is required")
	}
	if len(gameID) > maxGameIDLength {
		return apperr.Validation("gameId", "must be at most 255 characters long")
	}
	if rawAction == "" {
		return apperr.Validation("action", "is required")
	}
	action, ok := ParseAction(rawAction)
	if !ok {
		return apperr.Validation("action", "must be one of: hide, unhide, delete, restore")
	}
	if !p.Authenticated() {
		return apperr.ErrUnauthenticated
	}
	if action.Privileged() && !p.IsAdmin() {
		slog.Warn("visibility action denied",
			"user_id", p.SubjectID().String(), "action", string(action), "game_id", gameID)
		return apperr.ErrForbidden
	}

	var (
		existed bool
		removed int64
		err     error
	)
	switch action {
	case ActionDelete:
		existed, err = s.store.InsertGlobalDeletionIfAbsent(ctx, gameID, p.SubjectID(), s.now().UTC())
	case ActionRestore:
		removed, err = s.store.DeleteGlobalDeletions(ctx, gameID)
	case ActionHide:
		existed, err = s.store.InsertHiddenGameIfAbsent(ctx, p.SubjectID(), gameID)
	case ActionUnhide:
		removed, err = s.store.DeleteHiddenGames(ctx, p.SubjectID(), gameID)
	}
	if err != nil {
		return apperr.Persistence("apply visibility "+string(action), err)
	}

	slog.Info("visibility applied",
		"user_id", p.SubjectID().String(),
		"action", string(action),
		"game_id", gameID,
		"already_present", existed,
		"removed", removed,
	)
	return nil
}

// Status returns both sets without merging them. The deleted set is public;
// hidden is empty for anonymous callers.
func (s *VisibilityService) Status(ctx context.Context, p auth.Principal) (*VisibilityStatus, error) {
	deleted, err := s.store.ListGlobalDeletions(ctx)
	if err != nil {
		return nil, apperr.Persistence("list global deletions", err)
	}
	status := &VisibilityStatus{Deleted: nonNil(deleted), Hidden: []string{}}
	if !p.Authenticated() {
		return status, nil
	}
	hidden, err := s.store.ListHiddenGames(ctx, p.SubjectID())
	if err != nil {
		return nil, apperr.Persistence("list hidden games", err)
	}
	status.Hidden = nonNil(hidden)
	return status, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
