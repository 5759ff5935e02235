package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the public auth endpoints. The group is expected
// to bypass the auth middleware.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/forgotpassword", h.ForgotPassword)
	g.PUT("/resetpassword/:token", h.ResetPassword)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return echo.NewHTTPError(http.StatusBadRequest, ErrDuplicateUser.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, result)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
	return c.JSON(http.StatusOK, result)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	resetURL, err := h.svc.ForgotPassword(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, ErrEmailDelivery) {
			return echo.NewHTTPError(http.StatusInternalServerError, ErrEmailDelivery.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not process request")
	}

	resp := map[string]interface{}{
		"success": true,
		"message": "if the account exists, a reset email has been sent",
	}
	if resetURL != "" {
		resp["reset_url"] = resetURL
	}
	return c.JSON(http.StatusOK, resp)
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.ResetPassword(c.Request().Context(), c.Param("token"), req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			return echo.NewHTTPError(http.StatusBadRequest, ErrInvalidResetToken.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
