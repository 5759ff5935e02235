package request

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the patient-facing request endpoints. Creating and
// listing is open to any authenticated role; only staff may move a request
// through its workflow.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/requests")
	g.GET("/doctors", h.ListDoctors)
	g.POST("/appointments", h.CreateAppointmentRequest)
	g.GET("/appointments", h.ListAppointmentRequests)
	g.PUT("/appointments/:id", h.UpdateAppointmentRequestStatus, auth.RequireRole("admin", "doctor", "nurse"))
	g.POST("/inventory", h.CreateInventoryRequest)
	g.GET("/inventory", h.ListInventoryRequests)
	g.PUT("/inventory/:id", h.UpdateInventoryRequestStatus, auth.RequireRole("admin", "nurse"))
}

// requesterScope returns nil for staff, who see every request, and the
// acting user's id for patients, who only see their own.
func requesterScope(ctx context.Context) (*uuid.UUID, error) {
	if auth.RoleFromContext(ctx) != "patient" {
		return nil, nil
	}
	id, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid identity")
	}
	return &id, nil
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	doctors, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(doctors, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateAppointmentRequest(c echo.Context) error {
	requesterID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid identity")
	}
	var req AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateAppointmentRequest(c.Request().Context(), requesterID, &req); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrDoctorNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) ListAppointmentRequests(c echo.Context) error {
	scope, err := requesterScope(c.Request().Context())
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointmentRequests(c.Request().Context(), scope, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateAppointmentRequestStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	r, err := h.svc.UpdateAppointmentRequestStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		case errors.Is(err, ErrInvalidStatus):
			return echo.NewHTTPError(http.StatusBadRequest, ErrInvalidStatus.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) CreateInventoryRequest(c echo.Context) error {
	requesterID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid identity")
	}
	var req InventoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateInventoryRequest(c.Request().Context(), requesterID, &req); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrItemNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) ListInventoryRequests(c echo.Context) error {
	scope, err := requesterScope(c.Request().Context())
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListInventoryRequests(c.Request().Context(), scope, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateInventoryRequestStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	r, err := h.svc.UpdateInventoryRequestStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		case errors.Is(err, ErrInvalidStatus):
			return echo.NewHTTPError(http.StatusBadRequest, ErrInvalidStatus.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}
