package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(pgx.ErrNoRows) {
		t.Error("expected pgx.ErrNoRows to be not found")
	}
	if !IsNotFound(fmt.Errorf("get patient: %w", pgx.ErrNoRows)) {
		t.Error("expected wrapped pgx.ErrNoRows to be not found")
	}
	if IsNotFound(errors.New("boom")) {
		t.Error("expected generic error to not be not found")
	}
	if IsNotFound(nil) {
		t.Error("expected nil to not be not found")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "appointment_slot_key"}

	if !IsUniqueViolation(dup, "") {
		t.Error("expected 23505 to match any constraint")
	}
	if !IsUniqueViolation(dup, "appointment_slot_key") {
		t.Error("expected 23505 to match named constraint")
	}
	if IsUniqueViolation(dup, "other_key") {
		t.Error("expected constraint name mismatch to not match")
	}
	if !IsUniqueViolation(fmt.Errorf("insert: %w", dup), "appointment_slot_key") {
		t.Error("expected wrapped PgError to match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23514"}, "") {
		t.Error("expected check violation code to not match unique violation")
	}
	if IsUniqueViolation(errors.New("boom"), "") {
		t.Error("expected generic error to not match")
	}
}

func TestIsCheckViolation(t *testing.T) {
	chk := &pgconn.PgError{Code: "23514", ConstraintName: "inventory_item_current_stock_check"}

	if !IsCheckViolation(chk, "") {
		t.Error("expected 23514 to match any constraint")
	}
	if !IsCheckViolation(chk, "inventory_item_current_stock_check") {
		t.Error("expected 23514 to match named constraint")
	}
	if IsCheckViolation(&pgconn.PgError{Code: "23505"}, "") {
		t.Error("expected unique violation code to not match check violation")
	}
}
