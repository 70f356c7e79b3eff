package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestToDomainError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewForbidden("admin role required"))

	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{name: "domain error passes through wrapping", err: wrapped, code: "FORBIDDEN", status: http.StatusForbidden},
		{name: "fiber error keeps status", err: fiber.NewError(http.StatusBadRequest, "invalid payload"), code: "BAD_REQUEST", status: http.StatusBadRequest},
		{name: "fiber 413 has its own code", err: fiber.ErrRequestEntityTooLarge, code: "PAYLOAD_TOO_LARGE", status: http.StatusRequestEntityTooLarge},
		{name: "plain error is internal", err: errors.New("boom"), code: "INTERNAL_ERROR", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			if got.Code != tt.code || got.HTTPStatus != tt.status {
				t.Fatalf("got %s/%d, want %s/%d", got.Code, got.HTTPStatus, tt.code, tt.status)
			}
		})
	}

	if ToDomainError(nil) != nil {
		t.Fatal("nil error should map to nil")
	}
}

func TestMalformedRequestUnwraps(t *testing.T) {
	cause := errors.New("bad base64")
	err := NewMalformedRequest("invalid payload", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}
	if ToDomainError(err).HTTPStatus != http.StatusBadRequest {
		t.Fatal("malformed request must map to 400")
	}
}
