package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("program", "17")

	expected := `program "17" not found`
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !stderrors.Is(err, ErrNotFound) {
		t.Error("expected error to wrap ErrNotFound")
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should return true")
	}
}

func TestNotFoundError_NoID(t *testing.T) {
	err := NewNotFoundError("user settings", "")

	expected := "user settings not found"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("load_unit", "must be kg or lb")

	expected := "load_unit: must be kg or lb"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !IsValidationError(err) {
		t.Error("IsValidationError should return true")
	}
}

func TestRequiredError(t *testing.T) {
	err := RequiredError("exercise_name")

	expected := "exercise_name: is required"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestConflictError(t *testing.T) {
	err := NewConflictError("user exercise", "Goblet Squat", "already exists")

	if !stderrors.Is(err, ErrConflict) {
		t.Error("expected error to wrap ErrConflict")
	}
	if !stderrors.Is(err, ErrAlreadyExists) {
		t.Error("expected error to match ErrAlreadyExists")
	}
	if !IsConflict(fmt.Errorf("create: %w", err)) {
		t.Error("IsConflict should see through wrapping")
	}
}

func TestOwnershipError(t *testing.T) {
	err := NewOwnershipError("program", "9", 42)

	expected := "program 9 does not belong to user 42"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !IsForbidden(err) {
		t.Error("IsForbidden should return true for OwnershipError")
	}
	if !IsOwnershipError(err) {
		t.Error("IsOwnershipError should return true")
	}
}

func TestEnsureOwnership(t *testing.T) {
	if err := EnsureOwnership(1, 1, "program", "3"); err != nil {
		t.Errorf("same owner: unexpected error %v", err)
	}
	if err := EnsureOwnership(1, 2, "program", "3"); !IsOwnershipError(err) {
		t.Errorf("different owner: got %v, want OwnershipError", err)
	}
}

func TestUpstreamError(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewUpstreamError("stripe", "create checkout session", cause)

	if !IsUpstream(err) {
		t.Error("IsUpstream should return true")
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected error to wrap its cause")
	}
}

func TestDatabase(t *testing.T) {
	if Database("op", nil) != nil {
		t.Error("Database(nil) should return nil")
	}
	err := Database("insert program", stderrors.New("boom"))
	if !stderrors.Is(err, ErrDatabase) {
		t.Error("expected error to wrap ErrDatabase")
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", RequiredError("name"), http.StatusBadRequest, "name: is required"},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{"ownership", NewOwnershipError("program", "1", 2), http.StatusForbidden, "Forbidden"},
		{"not found", NewNotFoundError("program", "1"), http.StatusNotFound, `program "1" not found`},
		{"conflict", NewConflictError("x", "y", ""), http.StatusConflict, `x "y" conflict`},
		{"upstream", NewUpstreamError("garmin", "token", stderrors.New("secret detail")), http.StatusInternalServerError, GenericMessage},
		{"database", Database("select", stderrors.New("pq: password authentication failed")), http.StatusInternalServerError, GenericMessage},
		{"internal service error", Internal("do not leak", stderrors.New("x")), http.StatusInternalServerError, GenericMessage},
		{"explicit bad request", BadRequest("Exercise already exists"), http.StatusBadRequest, "Exercise already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := FromError(tt.err)
			if se.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", se.HTTPStatus, tt.wantStatus)
			}
			if se.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", se.Message, tt.wantMsg)
			}
		})
	}

	if FromError(nil) != nil {
		t.Error("FromError(nil) should return nil")
	}
}

func TestRateLimitExceeded(t *testing.T) {
	se := RateLimitExceeded(10, "1s")
	if se.HTTPStatus != http.StatusTooManyRequests {
		t.Errorf("HTTPStatus = %d, want 429", se.HTTPStatus)
	}
	if se.Details["limit"] != 10 {
		t.Errorf("Details[limit] = %v, want 10", se.Details["limit"])
	}
}
