package appointment

import (
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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/appointments", auth.RequireRole("admin", "doctor", "nurse"))
	g.POST("", h.Book)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Cancel)
}

func (h *Handler) Book(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.Book(c.Request().Context(), &a); err != nil {
		switch {
		case errors.Is(err, ErrPatientNotFound):
			return echo.NewHTTPError(http.StatusNotFound, ErrPatientNotFound.Error())
		case errors.Is(err, ErrDoctorNotFound):
			return echo.NewHTTPError(http.StatusNotFound, ErrDoctorNotFound.Error())
		case errors.Is(err, ErrSlotTaken):
			return echo.NewHTTPError(http.StatusConflict, ErrSlotTaken.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	f := Filter{Status: c.QueryParam("status")}
	if f.Status != "" && !ValidStatus(f.Status) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
	}
	if doctorParam := c.QueryParam("doctor"); doctorParam != "" {
		doctorID, err := uuid.Parse(doctorParam)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor filter")
		}
		f.DoctorID = doctorID
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	existing, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	updated := *existing
	if err := c.Bind(&updated); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	updated.ID = id
	updated.PatientID = existing.PatientID
	updated.DoctorID = existing.DoctorID

	if err := h.svc.Update(c.Request().Context(), &updated); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		case errors.Is(err, ErrSlotTaken):
			return echo.NewHTTPError(http.StatusConflict, ErrSlotTaken.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Cancel(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "status": StatusCanceled})
}
