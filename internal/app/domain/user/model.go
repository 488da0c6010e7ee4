package user

import (
	"strings"
	"time"
)

// Roles. An empty role means signed in but not subscribed.
const (
	RoleNone  = ""
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an authenticated person.
type User struct {
	ID               int64     `db:"id" json:"id"`
	Email            string    `db:"email" json:"email"`
	Name             string    `db:"name" json:"name"`
	Role             string    `db:"role" json:"role"`
	AuthProvider     string    `db:"auth_provider" json:"-"`
	AuthSubject      string    `db:"auth_subject" json:"-"`
	StripeCustomerID *string   `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identity is what an identity provider tells us about a sign-in.
type Identity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// Session is a persisted login.
type Session struct {
	TokenHash string    `db:"token_hash"`
	UserID    int64     `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	IP        string    `db:"ip"`
	UserAgent string    `db:"user_agent"`
	CreatedAt time.Time `db:"created_at"`
}
