package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"sentinel", ErrNotSender, KindAuthorization},
		{"wrapped sentinel", fmt.Errorf("edit: %w", ErrEditWindowExpired), KindValidation},
		{"dependency", Dependency("store down", errors.New("conn refused")), KindDependency},
		{"plain", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapMatchesSentinel(t *testing.T) {
	cause := errors.New("no rows")
	err := Wrap(ErrMessageNotFound, cause)

	if !errors.Is(err, ErrMessageNotFound) {
		t.Error("wrapped error should match its sentinel")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should match its cause")
	}
	if errors.Is(err, ErrGroupNotFound) {
		t.Error("wrapped error should not match a different code")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrInvalidCredential, fiber.StatusUnauthorized},
		{ErrCannotDelete, fiber.StatusForbidden},
		{ErrGroupNotFound, fiber.StatusNotFound},
		{ErrEmptyMessage, fiber.StatusBadRequest},
		{Dependency("x", nil), fiber.StatusServiceUnavailable},
		{errors.New("x"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestToPayloadHidesCause(t *testing.T) {
	p := ToPayload(Dependency("Failed to save message", errors.New("password=secret")))
	if p.Code != "dependency_failure" {
		t.Errorf("Code = %q", p.Code)
	}
	if p.Message != "Failed to save message" {
		t.Errorf("Message = %q", p.Message)
	}
}
