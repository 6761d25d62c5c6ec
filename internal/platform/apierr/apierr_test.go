package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeOfWrapped(t *testing.T) {
	base := ProfileLocked()
	wrapped := fmt.Errorf("update: %w", base)
	if got := CodeOf(wrapped); got != CodeProfileLocked {
		t.Fatalf("CodeOf=%q want %q", got, CodeProfileLocked)
	}
	if !Is(wrapped, CodeProfileLocked) {
		t.Fatalf("Is should match wrapped error")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no code")
	}
}

func TestDetailHidesCause(t *testing.T) {
	e := Storage(errors.New("pq: connection reset"))
	if e.Detail() != "storage failure" {
		t.Fatalf("Detail=%q", e.Detail())
	}
	if e.Status != http.StatusServiceUnavailable {
		t.Fatalf("Status=%d", e.Status)
	}
	if !errors.Is(e, e.Err) {
		t.Fatalf("cause should unwrap")
	}
}

func TestOnboardingIncompleteCopiesMissing(t *testing.T) {
	missing := []string{"step_4", "step_9"}
	e := OnboardingIncomplete(missing)
	missing[0] = "mutated"
	if e.Missing[0] != "step_4" {
		t.Fatalf("missing slice aliased caller input")
	}
}

func TestValidationCarriesField(t *testing.T) {
	e := Validation("goals[0].priority", "priority must be between %d and %d", 1, 3)
	if e.Field != "goals[0].priority" || e.Code != CodeValidation {
		t.Fatalf("unexpected error %+v", e)
	}
	if e.Error() != "priority must be between 1 and 3" {
		t.Fatalf("Error()=%q", e.Error())
	}
}
