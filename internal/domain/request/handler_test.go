package request

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
)

func newTestHandler() (*Handler, *fixture, *echo.Echo) {
	f := newFixture()
	return NewHandler(f.svc), f, echo.New()
}

func doRequest(e *echo.Echo, h echo.HandlerFunc, method, body, userID, role string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), userID, role))
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestHandler_CreateAppointmentRequest(t *testing.T) {
	h, f, e := newTestHandler()
	userID := uuid.NewString()
	body := `{"doctor_id":"` + f.doctorID.String() + `","appointment_date":"2026-10-01T00:00:00Z","appointment_time":"09:00"}`

	rec, err := doRequest(e, h.CreateAppointmentRequest, http.MethodPost, body, userID, "patient")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var got AppointmentRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RequesterID.String() != userID {
		t.Errorf("requester should come from the token, got %s", got.RequesterID)
	}
	if got.Status != StatusRequested {
		t.Errorf("expected requested, got %q", got.Status)
	}
}

func TestHandler_CreateAppointmentRequest_UnknownDoctor(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"doctor_id":"` + uuid.NewString() + `","appointment_date":"2026-10-01T00:00:00Z","appointment_time":"09:00"}`

	_, err := doRequest(e, h.CreateAppointmentRequest, http.MethodPost, body, uuid.NewString(), "patient")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_ListAppointmentRequests_PatientSeesOwnOnly(t *testing.T) {
	h, f, e := newTestHandler()
	mine := uuid.New()
	other := uuid.New()
	for _, requester := range []uuid.UUID{mine, other} {
		r := &AppointmentRequest{
			DoctorID:        f.doctorID,
			AppointmentDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			AppointmentTime: "09:00",
		}
		if err := f.svc.CreateAppointmentRequest(context.Background(), requester, r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rec, err := doRequest(e, h.ListAppointmentRequests, http.MethodGet, "", mine.String(), "patient")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data  []*AppointmentRequest `json:"data"`
		Total int                   `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || len(resp.Data) != 1 {
		t.Fatalf("patient should only see own requests, got %d", resp.Total)
	}
	if resp.Data[0].RequesterID != mine {
		t.Errorf("unexpected requester %s", resp.Data[0].RequesterID)
	}
}

func TestHandler_ListAppointmentRequests_StaffSeesAll(t *testing.T) {
	h, f, e := newTestHandler()
	for i := 0; i < 2; i++ {
		r := &AppointmentRequest{
			DoctorID:        f.doctorID,
			AppointmentDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			AppointmentTime: "09:00",
		}
		if err := f.svc.CreateAppointmentRequest(context.Background(), uuid.New(), r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rec, err := doRequest(e, h.ListAppointmentRequests, http.MethodGet, "", uuid.NewString(), "nurse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("staff should see every request, got %d", resp.Total)
	}
}

func TestHandler_UpdateAppointmentRequestStatus(t *testing.T) {
	h, f, e := newTestHandler()
	r := &AppointmentRequest{
		DoctorID:        f.doctorID,
		AppointmentDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		AppointmentTime: "09:00",
	}
	if err := f.svc.CreateAppointmentRequest(context.Background(), uuid.New(), r); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"approved"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), uuid.NewString(), "doctor"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())

	if err := h.UpdateAppointmentRequestStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got AppointmentRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != StatusApproved {
		t.Errorf("expected approved, got %q", got.Status)
	}
}

func TestHandler_UpdateAppointmentRequestStatus_Invalid(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"done"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.UpdateAppointmentRequestStatus(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_CreateInventoryRequest(t *testing.T) {
	h, f, e := newTestHandler()
	body := `{"item_id":"` + f.itemID.String() + `","quantity":2}`

	rec, err := doRequest(e, h.CreateInventoryRequest, http.MethodPost, body, uuid.NewString(), "patient")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_CreateInventoryRequest_BadQuantity(t *testing.T) {
	h, f, e := newTestHandler()
	body := `{"item_id":"` + f.itemID.String() + `","quantity":0}`

	_, err := doRequest(e, h.CreateInventoryRequest, http.MethodPost, body, uuid.NewString(), "patient")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_CreateInventoryRequest_UnknownItem(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"item_id":"` + uuid.NewString() + `","quantity":1}`

	_, err := doRequest(e, h.CreateInventoryRequest, http.MethodPost, body, uuid.NewString(), "patient")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_ListDoctors(t *testing.T) {
	h, _, e := newTestHandler()
	rec, err := doRequest(e, h.ListDoctors, http.MethodGet, "", uuid.NewString(), "patient")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "drsmith") {
		t.Errorf("doctor directory missing seeded doctor: %s", rec.Body.String())
	}
}
