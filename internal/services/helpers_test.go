package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/gamecatalog/visibility-backend/internal/auth"
	"github.com/gamecatalog/visibility-backend/internal/config"
	"github.com/gamecatalog/visibility-backend/internal/models"
	"github.com/gamecatalog/visibility-backend/internal/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:             "test-secret-test-secret-test-secret",
		JWTAccessExpiry:       15 * time.Minute,
		JWTRefreshExpiry:      24 * time.Hour,
		BcryptCost:            bcrypt.MinCost,
		PasswordMinLength:     8,
		NotificationPollLimit: 50,
	}
}

func seedUser(t *testing.T, st *store.GormStore, email, role string) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.New(), Email: email, Role: role, AuthProvider: models.ProviderEmail}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

// hydrate builds the principal exactly as the session middleware does.
func hydrate(t *testing.T, st *store.GormStore, id uuid.UUID) auth.Principal {
	t.Helper()
	p, err := auth.NewHydrator(st).Hydrate(context.Background(), id)
	if err != nil {
		t.Fatalf("hydrate %s: %v", id, err)
	}
	return p
}

func assertIDs(t *testing.T, name string, got, want []string) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s = nil, want non-nil slice", name)
	}
	if len(got) != len(want) {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s = %v, want %v", name, got, want)
		}
	}
}
