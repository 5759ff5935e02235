package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/notification"
)

// -- Mock Repository --

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "app_user_email_key"}
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) GetByResetTokenHash(_ context.Context, tokenHash string) (*User, error) {
	for _, u := range m.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash &&
			u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(time.Now()) {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) SetResetToken(_ context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.ResetTokenHash = &tokenHash
	u.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (m *mockUserRepo) ClearResetToken(_ context.Context, id uuid.UUID) error {
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.ResetTokenHash = nil
	u.ResetTokenExpiresAt = nil
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = nil
	u.ResetTokenExpiresAt = nil
	return nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		if u.Role == role {
			result = append(result, u)
		}
	}
	return result, len(result), nil
}

func newTestService(repo *mockUserRepo, email notification.EmailSender, cfg ServiceConfig) *Service {
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:5173"
	}
	return NewService(repo,
		auth.NewTokenIssuer([]byte("test-secret"), time.Hour),
		email,
		notification.NewTemplateEngine(),
		cfg,
		zerolog.Nop())
}

func seedUser(t *testing.T, repo *mockUserRepo, username, email, password, role string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := &User{Username: username, Email: email, PasswordHash: string(hash), Role: role}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// -- Register --

func TestRegister_CreatesPatientWithToken(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &notification.MockEmailSender{}, ServiceConfig{})

	result, err := svc.Register(context.Background(), "alice", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a session token")
	}
	if result.User.Role != RolePatient {
		t.Errorf("expected role patient, got %q", result.User.Role)
	}
	if bcrypt.CompareHashAndPassword([]byte(result.User.PasswordHash), []byte("secret123")) != nil {
		t.Error("stored hash does not match password")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(newMockUserRepo(), &notification.MockEmailSender{}, ServiceConfig{})
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"missing username", "", "a@b.com", "secret123"},
		{"missing email", "alice", "", "secret123"},
		{"missing password", "alice", "a@b.com", ""},
		{"short password", "alice", "a@b.com", "abc"},
		{"bad email", "alice", "not-an-email", "secret123"},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.username, tc.email, tc.password); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestRegister_Duplicate(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &notification.MockEmailSender{}, ServiceConfig{})
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "secret123"); err != nil {
		t.Fatalf("first Register() error: %v", err)
	}
	_, err := svc.Register(ctx, "alice", "other@example.com", "secret123")
	if err != ErrDuplicateUser {
		t.Errorf("expected ErrDuplicateUser, got %v", err)
	}
}

// -- Login --

func TestLogin_Success(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "alice", "alice@example.com", "secret123", RolePatient)
	svc := newTestService(repo, &notification.MockEmailSender{}, ServiceConfig{})

	result, err := svc.Login(context.Background(), "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a session token")
	}
}

func TestLogin_WrongPasswordAndUnknownEmailIndistinguishable(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "alice", "alice@example.com", "secret123", RolePatient)
	svc := newTestService(repo, &notification.MockEmailSender{}, ServiceConfig{})
	ctx := context.Background()

	_, wrongPass := svc.Login(ctx, "alice@example.com", "wrong")
	_, unknownEmail := svc.Login(ctx, "nobody@example.com", "secret123")

	if wrongPass != ErrInvalidCredentials {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", wrongPass)
	}
	if unknownEmail != ErrInvalidCredentials {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", unknownEmail)
	}
	if wrongPass.Error() != unknownEmail.Error() {
		t.Error("failure messages must be identical")
	}
}

// -- ForgotPassword --

func TestForgotPassword_UnknownEmailSilent(t *testing.T) {
	mock := &notification.MockEmailSender{}
	svc := newTestService(newMockUserRepo(), mock, ServiceConfig{})

	url, err := svc.ForgotPassword(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("expected no error for unknown email, got %v", err)
	}
	if url != "" {
		t.Error("expected no reset URL for unknown email")
	}
	if len(mock.Calls()) != 0 {
		t.Error("expected no email for unknown account")
	}
}

func TestForgotPassword_SendsTokenEmail(t *testing.T) {
	repo := newMockUserRepo()
	u := seedUser(t, repo, "alice", "alice@example.com", "secret123", RolePatient)
	mock := &notification.MockEmailSender{}
	svc := newTestService(repo, mock, ServiceConfig{})

	url, err := svc.ForgotPassword(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword() error: %v", err)
	}
	if url != "" {
		t.Error("reset URL must not be returned outside dev mode")
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email, got %d", len(calls))
	}
	if calls[0].To != "alice@example.com" {
		t.Errorf("email sent to %q", calls[0].To)
	}
	if !strings.Contains(calls[0].Body, "/resetpassword/") {
		t.Errorf("email body missing reset link: %q", calls[0].Body)
	}
	if u.ResetTokenHash == nil || u.ResetTokenExpiresAt == nil {
		t.Fatal("expected reset token fields to be stored")
	}
	// Only the hash is stored, never the raw token.
	if strings.Contains(calls[0].Body, *u.ResetTokenHash) {
		t.Error("email must carry the raw token, not its hash")
	}
}

func TestForgotPassword_DevModeReturnsURL(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "alice", "alice@example.com", "secret123", RolePatient)
	mock := &notification.MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	svc := newTestService(repo, mock, ServiceConfig{DevReturnResetURL: true})

	url, err := svc.ForgotPassword(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("dev mode must tolerate delivery failure, got %v", err)
	}
	if !strings.Contains(url, "/resetpassword/") {
		t.Errorf("expected reset URL, got %q", url)
	}
}

func TestForgotPassword_DeliveryFailureClearsToken(t *testing.T) {
	repo := newMockUserRepo()
	u := seedUser(t, repo, "alice", "alice@example.com", "secret123", RolePatient)
	mock := &notification.MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	svc := newTestService(repo, mock, ServiceConfig{})

	_, err := svc.ForgotPassword(context.Background(), "alice@example.com")
	if err != ErrEmailDelivery {
		t.Fatalf("expected ErrEmailDelivery, got %v", err)
	}
	if u.ResetTokenHash != nil || u.ResetTokenExpiresAt != nil {
		t.Error("expected reset token fields cleared after delivery failure")
	}
}

// -- ResetPassword --

func resetTokenFromEmail(t *testing.T, body string) string {
	t.Helper()
	idx := strings.LastIndex(body, "/resetpassword/")
	if idx < 0 {
		t.Fatalf("no reset link in email body: %q", body)
	}
	token := body[idx+len("/resetpassword/"):]
	if end := strings.IndexAny(token, " \n"); end >= 0 {
		token = token[:end]
	}
	return token
}

func TestResetPassword_FullFlow(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "alice", "alice@example.com", "oldpass1", RolePatient)
	mock := &notification.MockEmailSender{}
	svc := newTestService(repo, mock, ServiceConfig{})
	ctx := context.Background()

	if _, err := svc.ForgotPassword(ctx, "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword() error: %v", err)
	}
	token := resetTokenFromEmail(t, mock.Calls()[0].Body)

	result, err := svc.ResetPassword(ctx, token, "newpass1")
	if err != nil {
		t.Fatalf("ResetPassword() error: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a fresh session token")
	}

	if _, err := svc.Login(ctx, "alice@example.com", "newpass1"); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "oldpass1"); err != ErrInvalidCredentials {
		t.Errorf("old password must no longer work, got %v", err)
	}
}

func TestResetPassword_TokenSingleUse(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "alice", "alice@example.com", "oldpass1", RolePatient)
	mock := &notification.MockEmailSender{}
	svc := newTestService(repo, mock, ServiceConfig{})
	ctx := context.Background()

	if _, err := svc.ForgotPassword(ctx, "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword() error: %v", err)
	}
	token := resetTokenFromEmail(t, mock.Calls()[0].Body)

	if _, err := svc.ResetPassword(ctx, token, "newpass1"); err != nil {
		t.Fatalf("first ResetPassword() error: %v", err)
	}
	if _, err := svc.ResetPassword(ctx, token, "another1"); err != ErrInvalidResetToken {
		t.Errorf("expected ErrInvalidResetToken on reuse, got %v", err)
	}
}

func TestResetPassword_InvalidToken(t *testing.T) {
	svc := newTestService(newMockUserRepo(), &notification.MockEmailSender{}, ServiceConfig{})
	if _, err := svc.ResetPassword(context.Background(), "deadbeef", "newpass1"); err != ErrInvalidResetToken {
		t.Errorf("expected ErrInvalidResetToken, got %v", err)
	}
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	repo := newMockUserRepo()
	u := seedUser(t, repo, "alice", "alice@example.com", "oldpass1", RolePatient)
	svc := newTestService(repo, &notification.MockEmailSender{}, ServiceConfig{})
	ctx := context.Background()

	hash := hashResetToken("sometoken")
	expired := time.Now().Add(-time.Minute)
	u.ResetTokenHash = &hash
	u.ResetTokenExpiresAt = &expired

	if _, err := svc.ResetPassword(ctx, "sometoken", "newpass1"); err != ErrInvalidResetToken {
		t.Errorf("expected ErrInvalidResetToken for expired token, got %v", err)
	}
}

// -- ResolveIdentity / ListDoctors --

func TestResolveIdentity(t *testing.T) {
	repo := newMockUserRepo()
	u := seedUser(t, repo, "drbob", "bob@example.com", "secret123", RoleDoctor)
	svc := newTestService(repo, &notification.MockEmailSender{}, ServiceConfig{})

	ident, err := svc.ResolveIdentity(context.Background(), u.ID.String())
	if err != nil {
		t.Fatalf("ResolveIdentity() error: %v", err)
	}
	if ident.Role != RoleDoctor {
		t.Errorf("expected role doctor, got %q", ident.Role)
	}

	if _, err := svc.ResolveIdentity(context.Background(), uuid.NewString()); err == nil {
		t.Error("expected error for unknown user")
	}
	if _, err := svc.ResolveIdentity(context.Background(), "not-a-uuid"); err == nil {
		t.Error("expected error for malformed id")
	}
}

func TestListDoctors_ProjectsDirectoryFields(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "drbob", "bob@example.com", "secret123", RoleDoctor)
	seedUser(t, repo, "alice", "alice@example.com", "secret123", RolePatient)
	svc := newTestService(repo, &notification.MockEmailSender{}, ServiceConfig{})

	doctors, total, err := svc.ListDoctors(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("ListDoctors() error: %v", err)
	}
	if total != 1 || len(doctors) != 1 {
		t.Fatalf("expected 1 doctor, got %d", len(doctors))
	}
	if doctors[0].Username != "drbob" {
		t.Errorf("unexpected doctor: %+v", doctors[0])
	}
}
