package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gamecatalog/visibility-backend/internal/apperr"
	"github.com/gamecatalog/visibility-backend/internal/models"
	"github.com/gamecatalog/visibility-backend/internal/store"
	"github.com/gamecatalog/visibility-backend/internal/validation"
)

// ErrInvalidCredentials is the only failure callers see from Authenticate,
// whether the input was malformed, the email unknown or the password wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

type UserLookup interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type Authenticator struct {
	users          UserLookup
	minPasswordLen int
}

func NewAuthenticator(users UserLookup, minPasswordLen int) *Authenticator {
	return &Authenticator{users: users, minPasswordLen: minPasswordLen}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateCredentials checks syntax only: a well-formed email and a password
// of at least the configured length.
func (a *Authenticator) ValidateCredentials(email, password string) error {
	if err := validation.Var("email", email, "required,email"); err != nil {
		return err
	}
	if err := validation.Var("password", password, "required,min="+strconv.Itoa(a.minPasswordLen)); err != nil {
		return err
	}
	return nil
}

// Authenticate verifies email and password against the stored hash. The
// returned error always matches ErrInvalidCredentials except for storage
// failures, which match apperr.ErrPersistence. The wrapped reason is for logs.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (Principal, error) {
	email = NormalizeEmail(email)
	if err := a.ValidateCredentials(email, password); err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	user, err := a.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			burnCompare(password)
			return Principal{}, fmt.Errorf("%w: unknown account", ErrInvalidCredentials)
		}
		return Principal{}, apperr.Persistence("find user by email", err)
	}

	if !user.HasPassword() {
		burnCompare(password)
		return Principal{}, fmt.Errorf("%w: account has no password", ErrInvalidCredentials)
	}
	if !CheckPassword(user.Password, password) {
		return Principal{}, fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
	}
	return fromUser(user), nil
}
