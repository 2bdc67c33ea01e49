package ktest

import (
	"kestrel/kernel"
	"kestrel/kernel/kfmt"
)

// T is passed to each test function. A failed assertion ends the test run;
// when running on the host the calling test keeps executing so callers
// should return after a failed check.
type T struct {
	name string
	h    *Harness
}

// Name returns the name of the running test.
func (t *T) Name() string {
	return t.name
}

// Failed returns true if the test has failed.
func (t *T) Failed() bool {
	return t.h.failed
}

// Fail reports msg as the reason the test failed and ends the test run.
func (t *T) Fail(msg string) {
	if t.h.beginFailure(t.name) {
		kfmt.Fprintf(t.h.out, "%s", msg)
		t.h.abort()
	}
}

// Assert fails the test with msg if cond is false. It returns cond.
func (t *T) Assert(cond bool, msg string) bool {
	if !cond {
		t.Fail(msg)
	}
	return cond
}

// AssertEqual fails the test if got differs from want. It returns true if
// the values match.
func (t *T) AssertEqual(what string, got, want uint64) bool {
	if got == want {
		return true
	}

	if t.h.beginFailure(t.name) {
		kfmt.Fprintf(t.h.out, "%s: got 0x%x, want 0x%x", what, got, want)
		t.h.abort()
	}
	return false
}

// AssertNoError fails the test if err is not nil. It returns true if err is
// nil.
func (t *T) AssertNoError(what string, err *kernel.Error) bool {
	if err == nil {
		return true
	}

	if t.h.beginFailure(t.name) {
		kfmt.Fprintf(t.h.out, "%s: [%s] %s", what, err.Module, err.Message)
		t.h.abort()
	}
	return false
}
