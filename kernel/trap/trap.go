// Package trap contains the handlers for CPU exceptions that are not tied to
// a particular subsystem.
package trap

import (
	"kestrel/kernel"
	"kestrel/kernel/gate"
	"kestrel/kernel/gdt"
	"kestrel/kernel/kfmt"
)

var (
	// panicFn is mocked by tests and is automatically inlined by the compiler.
	panicFn = kfmt.Panic

	// breakpoints counts the INT3 traps handled since boot.
	breakpoints uint64

	errDoubleFault = &kernel.Error{Module: "trap", Message: "double fault"}
)

// Install registers the breakpoint and double fault handlers with tbl. The
// double fault handler runs on the dedicated interrupt stack set up by the
// gdt package so that it still works after a kernel stack overflow.
func Install(tbl *gate.Table) *kernel.Error {
	if err := tbl.HandleException(gate.Breakpoint, 0, breakpointHandler); err != nil {
		return err
	}

	return tbl.HandleExceptionWithCode(gate.DoubleFault, gdt.DoubleFaultIST, doubleFaultHandler)
}

// Breakpoints returns the number of breakpoint exceptions handled so far.
func Breakpoints() uint64 {
	return breakpoints
}

// breakpointHandler logs the trap and returns. INT3 is a trap so the saved
// RIP already points past the instruction and execution resumes normally.
func breakpointHandler(regs *gate.Registers) {
	breakpoints++
	kfmt.Printf("\nEXCEPTION: BREAKPOINT at 0x%16x\n", regs.RIP)
}

// doubleFaultHandler reports the faulting context and halts. A double fault
// can not be recovered from.
func doubleFaultHandler(regs *gate.Registers) {
	w := kfmt.GetOutputSink()
	kfmt.Fprintf(w, "\nEXCEPTION: DOUBLE FAULT (error code 0x%x)\n", regs.Info)
	kfmt.Fprintf(w, "Registers:\n")
	regs.DumpTo(w)

	panicFn(errDoubleFault)
}
