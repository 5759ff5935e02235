package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/notification"
)

func newTestHandler(repo *mockUserRepo, email notification.EmailSender) (*Handler, *echo.Echo) {
	h := NewHandler(newTestService(repo, email, ServiceConfig{}))
	return h, echo.New()
}

func postJSON(e *echo.Echo, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Register(t *testing.T) {
	h, e := newTestHandler(newMockUserRepo(), &notification.MockEmailSender{})
	c, rec := postJSON(e, "/register", `{"username":"alice","email":"alice@example.com","password":"secret123"}`)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var result AuthResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a token in the response")
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response must not leak password material")
	}
}

func TestHandler_Register_Duplicate(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "alice", "alice@example.com", "secret123", RolePatient)
	h, e := newTestHandler(repo, &notification.MockEmailSender{})

	c, _ := postJSON(e, "/register", `{"username":"alice","email":"alice@example.com","password":"secret123"}`)
	err := h.Register(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate, got %v", err)
	}
}

func TestHandler_Login_FailureShapeIdentical(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "alice", "alice@example.com", "secret123", RolePatient)
	h, e := newTestHandler(repo, &notification.MockEmailSender{})

	c1, _ := postJSON(e, "/login", `{"email":"alice@example.com","password":"wrong"}`)
	err1 := h.Login(c1)
	c2, _ := postJSON(e, "/login", `{"email":"nobody@example.com","password":"secret123"}`)
	err2 := h.Login(c2)

	he1, ok1 := err1.(*echo.HTTPError)
	he2, ok2 := err2.(*echo.HTTPError)
	if !ok1 || !ok2 {
		t.Fatalf("expected HTTP errors, got %v / %v", err1, err2)
	}
	if he1.Code != http.StatusUnauthorized || he2.Code != http.StatusUnauthorized {
		t.Errorf("expected 401/401, got %d/%d", he1.Code, he2.Code)
	}
	if he1.Message != he2.Message {
		t.Errorf("failure messages differ: %v vs %v", he1.Message, he2.Message)
	}
}

func TestHandler_Login_Success(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "alice", "alice@example.com", "secret123", RolePatient)
	h, e := newTestHandler(repo, &notification.MockEmailSender{})

	c, rec := postJSON(e, "/login", `{"email":"alice@example.com","password":"secret123"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_ForgotPassword_SameShapeForUnknown(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "alice", "alice@example.com", "secret123", RolePatient)
	h, e := newTestHandler(repo, &notification.MockEmailSender{})

	c1, rec1 := postJSON(e, "/forgotpassword", `{"email":"alice@example.com"}`)
	if err := h.ForgotPassword(c1); err != nil {
		t.Fatalf("known email: %v", err)
	}
	c2, rec2 := postJSON(e, "/forgotpassword", `{"email":"nobody@example.com"}`)
	if err := h.ForgotPassword(c2); err != nil {
		t.Fatalf("unknown email: %v", err)
	}

	if rec1.Code != http.StatusOK || rec2.Code != http.StatusOK {
		t.Errorf("expected 200/200, got %d/%d", rec1.Code, rec2.Code)
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Errorf("response bodies differ:\n%s\n%s", rec1.Body.String(), rec2.Body.String())
	}
}

func TestHandler_ResetPassword_InvalidToken(t *testing.T) {
	h, e := newTestHandler(newMockUserRepo(), &notification.MockEmailSender{})

	req := httptest.NewRequest(http.MethodPut, "/resetpassword/bad", strings.NewReader(`{"password":"newpass1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("token")
	c.SetParamValues("bad")

	err := h.ResetPassword(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid token, got %v", err)
	}
}
