// Package auth resolves who a caller is. Principals are built only here, from
// the stored User record, so no other code path can forge or keep a stale role.
package auth

import (
	"github.com/gamecatalog/visibility-backend/internal/models"
	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = models.RoleUser
	RoleAdmin Role = models.RoleAdmin
)

// ParseRole accepts only the two known roles.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

type DisplayIdentity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image"`
	Alias string `json:"alias"`
	Bio   string `json:"bio"`
}

// Principal is the authorization-relevant projection of a User for one
// request. The zero value is the anonymous caller.
type Principal struct {
	subjectID uuid.UUID
	role      Role
	display   DisplayIdentity
}

func (p Principal) SubjectID() uuid.UUID     { return p.subjectID }
func (p Principal) Role() Role               { return p.role }
func (p Principal) Display() DisplayIdentity { return p.display }

func (p Principal) Authenticated() bool {
	return p.subjectID != uuid.Nil
}

func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.role == RoleAdmin
}

func fromUser(u *models.User) Principal {
	role, ok := ParseRole(u.Role)
	if !ok {
		// Unknown stored values never grant privileges.
		role = RoleUser
	}
	return Principal{
		subjectID: u.ID,
		role:      role,
		display: DisplayIdentity{
			Email: u.Email,
			Name:  u.Name,
			Image: u.Image,
			Alias: u.Alias,
			Bio:   u.Bio,
		},
	}
}
