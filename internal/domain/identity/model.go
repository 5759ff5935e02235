package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Roles assignable to a user account. Public registration always produces
// RolePatient; staff roles are granted by an admin.
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RoleNurse   = "nurse"
	RolePatient = "patient"
)

var validRoles = map[string]bool{
	RoleAdmin:   true,
	RoleDoctor:  true,
	RoleNurse:   true,
	RolePatient: true,
}

// ValidRole reports whether role is one of the recognized role tags.
func ValidRole(role string) bool {
	return validRoles[role]
}

// User maps to the app_user table. The password hash and reset token fields
// are never serialized.
type User struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	Username            string     `db:"username" json:"username"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	Role                string     `db:"role" json:"role"`
	ResetTokenHash      *string    `db:"reset_token_hash" json:"-"`
	ResetTokenExpiresAt *time.Time `db:"reset_token_expires_at" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Doctor is the public directory projection of a doctor account.
type Doctor struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// validEmail performs a shape check only; deliverability is the mail
// server's problem.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}
