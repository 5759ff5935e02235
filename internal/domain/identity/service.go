package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/notification"
)

const (
	minPasswordLength = 6
	resetTokenBytes   = 20
	resetTokenTTL     = 10 * time.Minute
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// login responses cannot be used to probe for accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUser      = errors.New("username or email already in use")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrEmailDelivery      = errors.New("email could not be sent")
)

// AuthResult is returned by every operation that establishes a session.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// ServiceConfig carries the environment knobs the auth flows depend on.
type ServiceConfig struct {
	FrontendURL string
	// DevReturnResetURL makes ForgotPassword return the reset URL in the
	// response and tolerate email delivery failure.
	DevReturnResetURL bool
	AdminEmail        string
	HospitalName      string
}

type Service struct {
	users     Repository
	tokens    *auth.TokenIssuer
	email     notification.EmailSender
	templates *notification.TemplateEngine
	cfg       ServiceConfig
	log       zerolog.Logger
}

func NewService(users Repository, tokens *auth.TokenIssuer, email notification.EmailSender,
	templates *notification.TemplateEngine, cfg ServiceConfig, log zerolog.Logger) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		email:     email,
		templates: templates,
		cfg:       cfg,
		log:       log,
	}
}

// Register creates a patient account and returns a session token. Role is
// never taken from the request body.
func (s *Service) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("username, email and password are required")
	}
	if !validEmail(email) {
		return nil, fmt.Errorf("invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         RolePatient,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.notifyRegistration(u)

	token, err := s.tokens.Issue(u.ID.String(), u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, User: u}, nil
}

// notifyRegistration sends the welcome email and the admin notification.
// Delivery is fire-and-forget; failures are logged, never surfaced.
func (s *Service) notifyRegistration(u *User) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		subject, body, err := s.templates.Render("welcome", map[string]string{
			"name":          u.Username,
			"hospital_name": s.cfg.HospitalName,
		})
		if err == nil {
			if err := s.email.SendEmail(ctx, u.Email, subject, body); err != nil {
				s.log.Warn().Err(err).Str("user_id", u.ID.String()).Msg("welcome email failed")
			}
		}

		if s.cfg.AdminEmail != "" {
			body := fmt.Sprintf("New user registered: %s (%s)", u.Username, u.Email)
			if err := s.email.SendEmail(ctx, s.cfg.AdminEmail, "New user registration", body); err != nil {
				s.log.Warn().Err(err).Msg("admin notification email failed")
			}
		}
	}()
}

// Login authenticates by email and password. Unknown accounts and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID.String(), u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, User: u}, nil
}

// ForgotPassword issues a single-use reset token valid for ten minutes. The
// returned URL is non-empty only when DevReturnResetURL is set. An unknown
// email returns no error so the endpoint stays success-shaped either way.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)
	tokenHash := hashResetToken(token)

	if err := s.users.SetResetToken(ctx, u.ID, tokenHash, time.Now().Add(resetTokenTTL)); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/resetpassword/%s", s.cfg.FrontendURL, token)
	subject, body, err := s.templates.Render("password-reset", map[string]string{
		"reset_url": resetURL,
	})
	if err != nil {
		return "", fmt.Errorf("render reset email: %w", err)
	}

	if sendErr := s.email.SendEmail(ctx, u.Email, subject, body); sendErr != nil {
		if s.cfg.DevReturnResetURL {
			// Local setups rarely run an SMTP relay.
			s.log.Warn().Err(sendErr).Msg("reset email failed, returning URL directly")
			return resetURL, nil
		}
		// The stored token is useless if the user never receives it.
		if clearErr := s.users.ClearResetToken(ctx, u.ID); clearErr != nil {
			s.log.Error().Err(clearErr).Str("user_id", u.ID.String()).Msg("clear reset token failed")
		}
		return "", ErrEmailDelivery
	}

	if s.cfg.DevReturnResetURL {
		return resetURL, nil
	}
	return "", nil
}

// ResetPassword consumes a reset token and sets a new password, returning a
// fresh session token. Tokens are single use: the update clears the stored
// hash.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (*AuthResult, error) {
	if len(newPassword) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	u, err := s.users.GetByResetTokenHash(ctx, hashResetToken(token))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrInvalidResetToken
		}
		return nil, fmt.Errorf("lookup reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}

	sessionToken, err := s.tokens.Issue(u.ID.String(), u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: sessionToken, User: u}, nil
}

// ResolveIdentity implements auth.IdentityResolver so middleware can check
// the store instead of trusting token claims.
func (s *Service) ResolveIdentity(ctx context.Context, userID string) (*auth.Identity, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &auth.Identity{ID: u.ID.String(), Role: u.Role}, nil
}

// GetUser fetches a single account.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// ListDoctors returns the public doctor directory.
func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	users, total, err := s.users.ListByRole(ctx, RoleDoctor, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	doctors := make([]*Doctor, 0, len(users))
	for _, u := range users {
		doctors = append(doctors, &Doctor{ID: u.ID, Username: u.Username, Email: u.Email})
	}
	return doctors, total, nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
