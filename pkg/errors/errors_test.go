package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	appErr := StoreUnavailable(cause)

	if !errors.Is(appErr, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
	if appErr.StatusCode() != http.StatusServiceUnavailable {
		t.Errorf("unexpected status: %d", appErr.StatusCode())
	}
}

func TestIsCode(t *testing.T) {
	err := LeaseExpired("lease-1")
	if !IsCode(err, CodeLeaseExpired) {
		t.Error("IsCode should match the carried code")
	}
	if IsCode(err, CodeSlotUnavailable) {
		t.Error("IsCode should not match a different code")
	}
	if IsCode(errors.New("plain"), CodeLeaseExpired) {
		t.Error("IsCode should reject non-AppError values")
	}
}

func TestSlotUnavailableDetails(t *testing.T) {
	err := SlotUnavailable("court-1", "2025-06-12", "10:00", "12:00")
	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("unexpected status: %d", err.HTTPStatus)
	}
	if err.Details["court_id"] != "court-1" || err.Details["start"] != "10:00" {
		t.Errorf("unexpected details: %v", err.Details)
	}
}

func TestAsAppErrorWrapsUnknown(t *testing.T) {
	plain := errors.New("boom")
	appErr := AsAppError(plain)
	if appErr.Code != CodeInternal {
		t.Errorf("unexpected code: %s", appErr.Code)
	}
	if !errors.Is(appErr, plain) {
		t.Error("original error should be preserved as cause")
	}

	original := PaymentFailed(plain)
	if AsAppError(original) != original {
		t.Error("AppError values should pass through unchanged")
	}
}
