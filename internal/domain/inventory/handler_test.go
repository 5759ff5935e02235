package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func patchStock(h *Handler, id, body string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return rec, h.AdjustStock(c)
}

func TestHandler_AdjustStock(t *testing.T) {
	repo := newMockItemRepo()
	h := NewHandler(NewService(repo))

	item := validItem("Gauze", 10)
	if err := repo.Create(context.Background(), item); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec, err := patchStock(h, item.ID.String(), `{"quantity_change":-4}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var got Item
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CurrentStock != 6 {
		t.Errorf("expected stock 6, got %d", got.CurrentStock)
	}
}

func TestHandler_AdjustStock_Insufficient(t *testing.T) {
	repo := newMockItemRepo()
	h := NewHandler(NewService(repo))

	item := validItem("Gauze", 10)
	if err := repo.Create(context.Background(), item); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := patchStock(h, item.ID.String(), `{"quantity_change":-15}`)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}

	got, _ := repo.GetByID(context.Background(), item.ID)
	if got.CurrentStock != 10 {
		t.Errorf("stock must stay 10, got %d", got.CurrentStock)
	}
}

func TestHandler_AdjustStock_BadPayload(t *testing.T) {
	repo := newMockItemRepo()
	h := NewHandler(NewService(repo))

	item := validItem("Gauze", 10)
	if err := repo.Create(context.Background(), item); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for _, body := range []string{
		`{"quantity_change":0}`,
		`{"quantity_change":"abc"}`,
		`{}`,
	} {
		_, err := patchStock(h, item.ID.String(), body)
		httpErr, ok := err.(*echo.HTTPError)
		if !ok || httpErr.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %v", body, err)
		}
	}
}

func TestHandler_AdjustStock_UnknownItem(t *testing.T) {
	h := NewHandler(NewService(newMockItemRepo()))

	_, err := patchStock(h, uuid.NewString(), `{"quantity_change":5}`)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_Create_Duplicate(t *testing.T) {
	repo := newMockItemRepo()
	h := NewHandler(NewService(repo))

	if err := repo.Create(context.Background(), validItem("Gauze", 10)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"item_name":"Gauze","category":"consumable","unit":"box"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.Create(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}
