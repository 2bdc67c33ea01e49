// Package ktest runs kernel tests inside a booted kernel and reports the
// outcome to the host through the emulator's debug exit device.
//
// The harness writes a line of the form
//
//	Running N tests
//
// followed by "name...\t" before each test and "[ok]" once it returns. The
// first failed assertion or fatal error (any call to kfmt.Panic, including a
// double fault) prints "[failed]" and the error and then stops the emulator
// with debugexit.Failed. If every test completes the harness writes
// debugexit.Success.
package ktest

import (
	"io"
	"kestrel/device/debugexit"
	"kestrel/kernel"
	"kestrel/kernel/cpu"
	"kestrel/kernel/kfmt"
)

// Test is a single named kernel test.
type Test struct {
	Name string
	Fn   func(*T)
}

// ExitDevice is implemented by devices that can stop the emulator.
type ExitDevice interface {
	Exit(debugexit.ExitCode)
}

var (
	// haltFn is mocked by tests and is automatically inlined by the compiler.
	haltFn = cpu.Halt

	// active is the harness that receives fatal errors reported via
	// kfmt.Panic.
	active *Harness
)

// Harness executes a test sequence. It keeps no state on the heap so it can
// run before the kernel heap exists.
type Harness struct {
	out io.Writer
	dev ExitDevice

	// t is handed to the running test.
	t T

	failed bool
	passed int
}

// NewHarness returns a harness that writes its report to out and signals
// the final outcome to dev.
func NewHarness(out io.Writer, dev ExitDevice) Harness {
	return Harness{out: out, dev: dev}
}

// Run executes tests in order and returns the exit code written to the exit
// device. Under emulation Run never returns: the write to the exit device
// terminates the emulator and, should it not, the CPU is halted.
func (h *Harness) Run(tests []Test) debugexit.ExitCode {
	active = h
	kfmt.SetPanicHandler(onPanic)
	defer kfmt.SetPanicHandler(nil)

	kfmt.Fprintf(h.out, "Running %d tests\n", len(tests))
	for i := range tests {
		kfmt.Fprintf(h.out, "%s...\t", tests[i].Name)

		h.t = T{name: tests[i].Name, h: h}
		tests[i].Fn(&h.t)
		if h.failed {
			return debugexit.Failed
		}

		kfmt.Fprintf(h.out, "[ok]\n")
		h.passed++
	}

	h.dev.Exit(debugexit.Success)
	haltFn()
	return debugexit.Success
}

// Passed returns the number of tests that completed successfully.
func (h *Harness) Passed() int {
	return h.passed
}

// Failed returns true if a test failed or a fatal error was reported.
func (h *Harness) Failed() bool {
	return h.failed
}

// beginFailure prints the failure marker and the error prefix. It returns
// false if a failure has already been reported.
func (h *Harness) beginFailure(module string) bool {
	if h.failed {
		return false
	}

	h.failed = true
	kfmt.Fprintf(h.out, "[failed]\n\n")
	kfmt.Fprintf(h.out, "Error: [%s] ", module)
	return true
}

// abort writes the failed exit code and halts.
func (h *Harness) abort() {
	kfmt.Fprintf(h.out, "\n\n")
	h.dev.Exit(debugexit.Failed)
	haltFn()
}

// onPanic is registered with kfmt.SetPanicHandler while tests run.
func onPanic(err *kernel.Error) {
	if active == nil {
		return
	}

	module, msg := "rt", "unknown cause"
	if err != nil {
		module, msg = err.Module, err.Message
	}

	if active.beginFailure(module) {
		kfmt.Fprintf(active.out, "%s", msg)
		active.abort()
	}
}
