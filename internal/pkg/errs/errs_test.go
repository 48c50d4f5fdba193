package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNewError(t *testing.T) {
	testCases := []struct {
		Description     string
		Code            int
		Details         []any
		ExpectedCode    int
		ExpectedKind    Kind
		ExpectedMessage string
	}{
		{Description: "plain template", Code: ErrNotFound, ExpectedCode: ErrNotFound, ExpectedKind: KindRejected, ExpectedMessage: errorMap[ErrNotFound].Message},
		{Description: "formatted template", Code: ErrFileSizeTooLarge, Details: []any{5}, ExpectedCode: ErrFileSizeTooLarge, ExpectedKind: KindValidation, ExpectedMessage: "File size must be less than 5MB"},
		{Description: "details without placeholders are ignored", Code: ErrNetwork, Details: []any{"x"}, ExpectedCode: ErrNetwork, ExpectedKind: KindConnectivity, ExpectedMessage: errorMap[ErrNetwork].Message},
		{Description: "unknown code", Code: 987654, ExpectedCode: ErrUnknown, ExpectedKind: KindConnectivity, ExpectedMessage: errorMap[ErrUnknown].Message},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			err := NewError(tc.Code, tc.Details...)

			if err.Code != tc.ExpectedCode {
				t.Errorf("got code %d, want %d", err.Code, tc.ExpectedCode)
			}
			if err.Kind != tc.ExpectedKind {
				t.Errorf("got kind %s, want %s", err.Kind, tc.ExpectedKind)
			}
			if err.Message != tc.ExpectedMessage {
				t.Errorf("got message %q, want %q", err.Message, tc.ExpectedMessage)
			}
		})
	}
}

func TestNewErrorDoesNotShareTemplate(t *testing.T) {
	e := NewError(ErrRejected).WithMessage("Title is taken").WithStatus(http.StatusConflict)

	if e.Message != "Title is taken" || e.Status != http.StatusConflict {
		t.Errorf("got %q/%d, want the overrides", e.Message, e.Status)
	}

	fresh := NewError(ErrRejected)
	if fresh.Message != "Request failed" || fresh.Status != http.StatusBadRequest {
		t.Errorf("template changed: got %q/%d", fresh.Message, fresh.Status)
	}
}

func TestWithMessageIgnoresEmpty(t *testing.T) {
	e := NewError(ErrLoginFailed).WithMessage("")
	if e.Message != errorMap[ErrLoginFailed].Message {
		t.Errorf("got %q, want the template message", e.Message)
	}
}

func TestValidation(t *testing.T) {
	if got := Validation(nil); got != nil {
		t.Errorf("got %v, want nil for no fields", got)
	}

	single := Validation(map[string]string{"email": "Email is required"})
	if single.Message != "Email is required" {
		t.Errorf("got message %q, want the field message", single.Message)
	}
	if single.Status != http.StatusUnprocessableEntity {
		t.Errorf("got status %d, want %d", single.Status, http.StatusUnprocessableEntity)
	}

	fields := map[string]string{"email": "Email is required", "password": "Password is required"}
	multi := Validation(fields)
	if multi.Message != errorMap[ErrInvalidParams].Message {
		t.Errorf("got message %q, want the generic message", multi.Message)
	}

	fields["email"] = "changed"
	if multi.Fields["email"] != "Email is required" {
		t.Errorf("got %q, fields must be copied", multi.Fields["email"])
	}
}

func TestFrom(t *testing.T) {
	if From(nil) != nil {
		t.Errorf("got non-nil for nil error")
	}

	custom := NewError(ErrNotFound)
	if got := From(fmt.Errorf("wrapped: %w", custom)); got != custom {
		t.Errorf("got %v, want the wrapped CustomError", got)
	}

	plain := errors.New("disk on fire")
	got := From(plain)
	if got.Code != ErrUnknown {
		t.Errorf("got code %d, want %d", got.Code, ErrUnknown)
	}
	if !errors.Is(got, plain) {
		t.Errorf("got %v, want it to wrap the original error", got)
	}
}

func TestClassification(t *testing.T) {
	testCases := []struct {
		Description       string
		Err               error
		Code              int
		Kind              Kind
		ExpectedHasCode   bool
		ExpectedIsKind    bool
		ExpectedRetryable bool
	}{
		{Description: "connectivity", Err: NewError(ErrNetwork), Code: ErrNetwork, Kind: KindConnectivity, ExpectedHasCode: true, ExpectedIsKind: true, ExpectedRetryable: true},
		{Description: "storage", Err: NewError(ErrStorageFailed), Code: ErrStorageFailed, Kind: KindConnectivity, ExpectedHasCode: true, ExpectedIsKind: true, ExpectedRetryable: true},
		{Description: "unauthorized", Err: NewError(ErrUnauthorized), Code: ErrUnauthorized, Kind: KindUnauthorized, ExpectedHasCode: true, ExpectedIsKind: true},
		{Description: "validation is not retried", Err: NewError(ErrInvalidParams), Code: ErrInvalidParams, Kind: KindConnectivity, ExpectedHasCode: true},
		{Description: "plain error", Err: errors.New("boom"), Code: ErrUnknown, Kind: KindConnectivity},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			if got := HasCode(tc.Err, tc.Code); got != tc.ExpectedHasCode {
				t.Errorf("HasCode: got %t, want %t", got, tc.ExpectedHasCode)
			}
			if got := IsKind(tc.Err, tc.Kind); got != tc.ExpectedIsKind {
				t.Errorf("IsKind: got %t, want %t", got, tc.ExpectedIsKind)
			}

			var customErr *CustomError
			if errors.As(tc.Err, &customErr) && customErr.Retryable() != tc.ExpectedRetryable {
				t.Errorf("Retryable: got %t, want %t", customErr.Retryable(), tc.ExpectedRetryable)
			}
		})
	}
}
