package platform

import (
	"errors"
	"testing"
)

func TestNotFoundError_MessageTakesPrecedence(t *testing.T) {
	err := NotFoundError{EntityType: "repo", Message: "widget not found"}
	if err.Error() != "widget not found" {
		t.Errorf("expected explicit message to win, got %q", err.Error())
	}
}

func TestNotFoundError_FallsBackToEntityType(t *testing.T) {
	err := NotFoundError{EntityType: "branch"}
	if err.Error() != "branch not found" {
		t.Errorf("expected %q, got %q", "branch not found", err.Error())
	}
}

func TestBadJSONError_Unwrap(t *testing.T) {
	inner := errors.New("unexpected EOF")
	err := BadJSONError{Message: "bad json", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}
}

func TestServerError_FallsBackToWrappedError(t *testing.T) {
	inner := errors.New("disk full")
	err := ServerError{Err: inner}

	if err.Error() != "disk full" {
		t.Errorf("expected %q, got %q", "disk full", err.Error())
	}
}
