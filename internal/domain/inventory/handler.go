package inventory

import (
	"encoding/json"
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
	g := api.Group("/inventory")
	g.POST("", h.Create, auth.RequireRole("admin", "nurse"))
	g.GET("", h.List, auth.RequireRole("admin", "nurse", "doctor"))
	g.GET("/:id", h.Get, auth.RequireRole("admin", "nurse", "doctor"))
	g.PUT("/:id", h.Update, auth.RequireRole("admin", "nurse"))
	g.DELETE("/:id", h.Delete, auth.RequireRole("admin", "nurse"))
	g.PATCH("/:id/stock", h.AdjustStock, auth.RequireRole("admin", "nurse", "doctor"))
}

func (h *Handler) Create(c echo.Context) error {
	var item Item
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.Create(c.Request().Context(), &item); err != nil {
		if errors.Is(err, ErrDuplicateItem) {
			return echo.NewHTTPError(http.StatusConflict, ErrDuplicateItem.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		Category: c.QueryParam("category"),
		LowStock: c.QueryParam("low_stock") == "true",
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
	var item Item
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	item.ID = id
	if err := h.svc.Update(c.Request().Context(), &item); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		case errors.Is(err, ErrDuplicateItem):
			return echo.NewHTTPError(http.StatusConflict, ErrDuplicateItem.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type stockRequest struct {
	QuantityChange json.Number `json:"quantity_change"`
}

func (h *Handler) AdjustStock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req stockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	delta, err := req.QuantityChange.Int64()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity_change must be an integer")
	}
	if delta == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity_change must be non-zero")
	}

	item, err := h.svc.AdjustStock(c.Request().Context(), id, int(delta))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
		case errors.Is(err, ErrInsufficientStock):
			return echo.NewHTTPError(http.StatusBadRequest, ErrInsufficientStock.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}
