package domain

import (
	"context"
	"time"
)

// Role codes carried in access tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered user
// swagger:model User
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Claims is the authenticated identity extracted from an access token.
type Claims struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole reports whether the claims include role.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenVerifier verifies a token and returns the authenticated identity.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// UserRepository reads users. Accounts are managed by the auth service.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
