package runner

import (
	"errors"
	"testing"
)

func TestDecodeExitStatus(t *testing.T) {
	specs := []struct {
		status int
		exp    Outcome
	}{
		{33, OutcomeSuccess},
		{35, OutcomeFailed},
		{0, OutcomeUnknown},
		{1, OutcomeUnknown},
		{-1, OutcomeUnknown},
		{37, OutcomeUnknown},
	}

	for _, spec := range specs {
		if got := DecodeExitStatus(spec.status, DefaultSuccessCode); got != spec.exp {
			t.Errorf("status %d: expected outcome %q; got %q", spec.status, spec.exp, got)
		}
	}

	if got := DecodeExitStatus(HostStatus(0x40), 0x40); got != OutcomeSuccess {
		t.Errorf("expected custom success code to be honored; got %q", got)
	}
}

func TestHostStatusAndGuestCode(t *testing.T) {
	if got := HostStatus(DefaultSuccessCode); got != 33 {
		t.Fatalf("expected host status 33; got %d", got)
	}

	specs := []struct {
		status int
		exp    uint32
		expOK  bool
	}{
		{33, 0x10, true},
		{35, 0x11, true},
		{1, 0, true},
		{0, 0, false},
		{32, 0, false},
		{-1, 0, false},
		{256, 0, false},
	}

	for _, spec := range specs {
		got, ok := GuestCode(spec.status)
		if got != spec.exp || ok != spec.expOK {
			t.Errorf("status %d: expected (0x%x, %t); got (0x%x, %t)", spec.status, spec.exp, spec.expOK, got, ok)
		}
	}
}

func TestOutcomeError(t *testing.T) {
	var err error = &OutcomeError{Target: "shouldfail", Expected: OutcomeFailed, Got: OutcomeSuccess, ExitStatus: 33}

	if !errors.Is(err, ErrUnexpectedOutcome) {
		t.Fatal("expected OutcomeError to wrap ErrUnexpectedOutcome")
	}

	exp := `target "shouldfail": expected outcome "failed"; got "success" (exit status 33)`
	if got := err.Error(); got != exp {
		t.Fatalf("expected error %q; got %q", exp, got)
	}
}
