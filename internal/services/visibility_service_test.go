package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gamecatalog/visibility-backend/internal/apperr"
	"github.com/gamecatalog/visibility-backend/internal/auth"
	"github.com/gamecatalog/visibility-backend/internal/models"
	"github.com/gamecatalog/visibility-backend/internal/services"
	"github.com/gamecatalog/visibility-backend/internal/store/storetest"
	"github.com/google/uuid"
)

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	st := storetest.OpenStore(t)
	svc := services.NewVisibilityService(st)
	ctx := context.Background()
	user := hydrate(t, st, seedUser(t, st, "u@example.com", models.RoleUser).ID)
	admin := hydrate(t, st, seedUser(t, st, "a@example.com", models.RoleAdmin).ID)

	for i := 0; i < 2; i++ {
		if err := svc.Apply(ctx, user, "g1", "hide"); err != nil {
			t.Fatalf("hide #%d: %v", i+1, err)
		}
		if err := svc.Apply(ctx, admin, "g2", "delete"); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	status, err := svc.Status(ctx, user)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	assertIDs(t, "hidden", status.Hidden, []string{"g1"})
	assertIDs(t, "deleted", status.Deleted, []string{"g2"})

	for i := 0; i < 2; i++ {
		if err := svc.Apply(ctx, user, "g1", "unhide"); err != nil {
			t.Fatalf("unhide #%d: %v", i+1, err)
		}
		if err := svc.Apply(ctx, admin, "g2", "restore"); err != nil {
			t.Fatalf("restore #%d: %v", i+1, err)
		}
	}
	status, err = svc.Status(ctx, user)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	assertIDs(t, "hidden", status.Hidden, []string{})
	assertIDs(t, "deleted", status.Deleted, []string{})
}

func TestInverseActionsRestorePriorState(t *testing.T) {
	t.Parallel()

	st := storetest.OpenStore(t)
	svc := services.NewVisibilityService(st)
	ctx := context.Background()
	user := hydrate(t, st, seedUser(t, st, "u@example.com", models.RoleUser).ID)
	admin := hydrate(t, st, seedUser(t, st, "a@example.com", models.RoleAdmin).ID)

	mustApply(t, svc, user, "keep", "hide")
	mustApply(t, svc, admin, "gone", "delete")
	before, _ := svc.Status(ctx, user)

	mustApply(t, svc, user, "g1", "hide")
	mustApply(t, svc, user, "g1", "unhide")
	mustApply(t, svc, admin, "g1", "delete")
	mustApply(t, svc, admin, "g1", "restore")

	after, err := svc.Status(ctx, user)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	assertIDs(t, "hidden", after.Hidden, before.Hidden)
	assertIDs(t, "deleted", after.Deleted, before.Deleted)
}

func TestNonAdminCannotDeleteOrRestore(t *testing.T) {
	t.Parallel()

	st := storetest.OpenStore(t)
	svc := services.NewVisibilityService(st)
	ctx := context.Background()
	user := hydrate(t, st, seedUser(t, st, "u@example.com", models.RoleUser).ID)
	admin := hydrate(t, st, seedUser(t, st, "a@example.com", models.RoleAdmin).ID)
	mustApply(t, svc, admin, "existing", "delete")

	cases := []struct{ gameID, action string }{
		{"existing", "delete"},
		{"existing", "restore"},
		{"missing", "delete"},
		{"missing", "restore"},
	}
	for _, tc := range cases {
		err := svc.Apply(ctx, user, tc.gameID, tc.action)
		if !errors.Is(err, apperr.ErrForbidden) {
			t.Fatalf("%s %s: err = %v, want ErrForbidden", tc.action, tc.gameID, err)
		}
	}

	status, err := svc.Status(ctx, auth.Principal{})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	assertIDs(t, "deleted", status.Deleted, []string{"existing"})
}

func TestDemotedAdminLosesPrivilegesOnNextHydration(t *testing.T) {
	t.Parallel()

	st := storetest.OpenStore(t)
	svc := services.NewVisibilityService(st)
	ctx := context.Background()
	adminUser := seedUser(t, st, "a@example.com", models.RoleAdmin)

	mustApply(t, svc, hydrate(t, st, adminUser.ID), "g1", "delete")

	if err := st.SetUserRole(ctx, adminUser.ID, models.RoleUser); err != nil {
		t.Fatalf("demote: %v", err)
	}

	err := svc.Apply(ctx, hydrate(t, st, adminUser.ID), "g1", "restore")
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden after demotion", err)
	}
}

func TestStatusAggregation(t *testing.T) {
	t.Parallel()

	st := storetest.OpenStore(t)
	svc := services.NewVisibilityService(st)
	ctx := context.Background()
	user := hydrate(t, st, seedUser(t, st, "u@example.com", models.RoleUser).ID)
	other := hydrate(t, st, seedUser(t, st, "o@example.com", models.RoleUser).ID)
	admin := hydrate(t, st, seedUser(t, st, "a@example.com", models.RoleAdmin).ID)

	mustApply(t, svc, user, "A", "hide")
	mustApply(t, svc, other, "C", "hide")
	mustApply(t, svc, admin, "B", "delete")

	status, err := svc.Status(ctx, user)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	assertIDs(t, "user deleted", status.Deleted, []string{"B"})
	assertIDs(t, "user hidden", status.Hidden, []string{"A"})

	anon, err := svc.Status(ctx, auth.Principal{})
	if err != nil {
		t.Fatalf("anonymous status: %v", err)
	}
	assertIDs(t, "anonymous deleted", anon.Deleted, []string{"B"})
	assertIDs(t, "anonymous hidden", anon.Hidden, []string{})
}

func TestVisibilityEndToEnd(t *testing.T) {
	t.Parallel()

	st := storetest.OpenStore(t)
	svc := services.NewVisibilityService(st)
	ctx := context.Background()
	u := hydrate(t, st, seedUser(t, st, "u@example.com", models.RoleUser).ID)
	a := hydrate(t, st, seedUser(t, st, "a@example.com", models.RoleAdmin).ID)
	anon := auth.Principal{}

	mustApply(t, svc, u, "g1", "hide")
	s, _ := svc.Status(ctx, u)
	assertIDs(t, "U hidden", s.Hidden, []string{"g1"})

	mustApply(t, svc, a, "g1", "delete")
	s, _ = svc.Status(ctx, anon)
	assertIDs(t, "anonymous deleted", s.Deleted, []string{"g1"})

	s, _ = svc.Status(ctx, u)
	assertIDs(t, "U deleted", s.Deleted, []string{"g1"})
	assertIDs(t, "U hidden", s.Hidden, []string{"g1"})

	mustApply(t, svc, a, "g1", "restore")
	s, _ = svc.Status(ctx, anon)
	assertIDs(t, "anonymous deleted", s.Deleted, []string{})
}

func TestApplyValidation(t *testing.T) {
	t.Parallel()

	st := storetest.OpenStore(t)
	svc := services.NewVisibilityService(st)
	ctx := context.Background()
	user := hydrate(t, st, seedUser(t, st, "u@example.com", models.RoleUser).ID)

	tests := []struct {
		name      string
		principal auth.Principal
		gameID    string
		action    string
		want      error
	}{
		{"empty game", user, "  ", "hide", apperr.ErrValidation},
		{"long game", user, strings.Repeat("x", 256), "hide", apperr.ErrValidation},
		{"missing action", user, "g1", "", apperr.ErrValidation},
		{"unknown action", user, "g1", "archive", apperr.ErrValidation},
		{"anonymous invalid", auth.Principal{}, "g1", "archive", apperr.ErrValidation},
		{"anonymous hide", auth.Principal{}, "g1", "hide", apperr.ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Apply(ctx, tt.principal, tt.gameID, tt.action)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

// failingVisibilityStore fails every call.
type failingVisibilityStore struct{}

var errDBDown = errors.New("pq: connection refused to 10.0.0.5")

func (failingVisibilityStore) InsertGlobalDeletionIfAbsent(context.Context, string, uuid.UUID, time.Time) (bool, error) {
	return false, errDBDown
}
func (failingVisibilityStore) DeleteGlobalDeletions(context.Context, string) (int64, error) {
	return 0, errDBDown
}
func (failingVisibilityStore) ListGlobalDeletions(context.Context) ([]string, error) {
	return nil, errDBDown
}
func (failingVisibilityStore) InsertHiddenGameIfAbsent(context.Context, uuid.UUID, string) (bool, error) {
	return false, errDBDown
}
func (failingVisibilityStore) DeleteHiddenGames(context.Context, uuid.UUID, string) (int64, error) {
	return 0, errDBDown
}
func (failingVisibilityStore) ListHiddenGames(context.Context, uuid.UUID) ([]string, error) {
	return nil, errDBDown
}

func TestStorageFailuresAreSanitized(t *testing.T) {
	t.Parallel()

	st := storetest.OpenStore(t)
	user := hydrate(t, st, seedUser(t, st, "u@example.com", models.RoleUser).ID)
	svc := services.NewVisibilityService(failingVisibilityStore{})
	ctx := context.Background()

	err := svc.Apply(ctx, user, "g1", "hide")
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("apply err = %v, want ErrPersistence", err)
	}
	if msg := apperr.PublicMessage(err); strings.Contains(msg, "10.0.0.5") {
		t.Fatalf("public message leaks storage detail: %q", msg)
	}

	if _, err := svc.Status(ctx, user); !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("status err = %v, want ErrPersistence", err)
	}
}

func mustApply(t *testing.T, svc *services.VisibilityService, p auth.Principal, gameID, action string) {
	t.Helper()
	if err := svc.Apply(context.Background(), p, gameID, action); err != nil {
		t.Fatalf("%s %s: %v", action, gameID, err)
	}
}
