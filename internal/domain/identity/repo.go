package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByResetTokenHash returns the user holding the given reset token
	// hash with an expiry in the future.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*User, error)
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id uuid.UUID) error
	// UpdatePassword sets a new password hash and clears any reset token.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ListByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error)
}
