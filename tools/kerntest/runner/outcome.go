package runner

import (
	"errors"
	"fmt"
)

// Outcome is the result of booting a test image.
type Outcome string

const (
	// OutcomeSuccess means the kernel wrote the success code to the exit
	// device.
	OutcomeSuccess Outcome = "success"

	// OutcomeFailed means the kernel wrote the failed code to the exit
	// device.
	OutcomeFailed Outcome = "failed"

	// OutcomeTimeout means the emulator was killed after running past its
	// wall-clock limit.
	OutcomeTimeout Outcome = "timeout"

	// OutcomeUnknown means the emulator exited without the kernel writing
	// a known value to the exit device, e.g. after a triple fault reset.
	OutcomeUnknown Outcome = "unknown"
)

// ErrUnexpectedOutcome is wrapped by OutcomeError.
var ErrUnexpectedOutcome = errors.New("unexpected outcome")

// OutcomeError reports a target whose outcome differs from the expected one.
type OutcomeError struct {
	Target   string
	Expected Outcome
	Got      Outcome

	// ExitStatus is the emulator exit status; -1 if it was killed.
	ExitStatus int
}

func (e *OutcomeError) Error() string {
	return fmt.Sprintf("target %q: expected outcome %q; got %q (exit status %d)", e.Target, e.Expected, e.Got, e.ExitStatus)
}

// Unwrap allows errors.Is(err, ErrUnexpectedOutcome).
func (e *OutcomeError) Unwrap() error {
	return ErrUnexpectedOutcome
}

// HostStatus returns the exit status of an emulator whose guest wrote code
// to the debug exit device.
func HostStatus(code uint32) int {
	return int(code<<1 | 1)
}

// DecodeExitStatus maps an emulator exit status to an outcome. successCode
// is the value the kernel writes on success; the failed code is the next
// value.
func DecodeExitStatus(status int, successCode uint32) Outcome {
	switch status {
	case HostStatus(successCode):
		return OutcomeSuccess
	case HostStatus(successCode + 1):
		return OutcomeFailed
	default:
		return OutcomeUnknown
	}
}

// GuestCode returns the value the guest wrote to the exit device to make
// the emulator exit with status. It returns false for statuses the device
// can not produce.
func GuestCode(status int) (uint32, bool) {
	if status <= 0 || status > 0xff || status&1 == 0 {
		return 0, false
	}
	return uint32(status >> 1), true
}
