package vmm

import (
	"io"
	"kestrel/kernel"
	"kestrel/kernel/cpu"
	"kestrel/kernel/gate"
	"kestrel/kernel/kfmt"
	"kestrel/kernel/mm"
)

// Page fault error code bits.
const (
	faultPresent  = 1 << 0
	faultWrite    = 1 << 1
	faultUser     = 1 << 2
	faultReserved = 1 << 3
	faultFetch    = 1 << 4
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	readCR2Fn = cpu.ReadCR2
	panicFn   = kfmt.Panic

	// faultMapper is consulted by the page fault handler to describe the
	// state of the faulting page. Interrupt handlers are plain functions
	// so the mapper is registered here by InstallFaultHandlers.
	faultMapper *Mapper

	errPageFault = &kernel.Error{Module: "vmm", Message: "page fault"}
	errGPF       = &kernel.Error{Module: "vmm", Message: "general protection fault"}
)

// InstallFaultHandlers registers the page fault and general protection fault
// handlers with tbl. Both faults are unrecoverable: the handlers report the
// fault and panic.
func InstallFaultHandlers(tbl *gate.Table, m *Mapper) *kernel.Error {
	faultMapper = m

	if err := tbl.HandleExceptionWithCode(gate.PageFaultException, 0, pageFaultHandler); err != nil {
		return err
	}
	return tbl.HandleExceptionWithCode(gate.GPFException, 0, generalProtectionFaultHandler)
}

// pageFaultHandler is invoked when a page table entry is not present or when
// a RW protection check fails.
func pageFaultHandler(regs *gate.Registers) {
	faultAddress := uintptr(readCR2Fn())
	w := kfmt.GetOutputSink()

	kfmt.Fprintf(w, "\nPage fault while accessing address: 0x%16x\nReason: ", faultAddress)
	describeFaultCode(w, regs.Info)

	if faultMapper != nil {
		if frame, flags, err := faultMapper.Lookup(mm.PageFromAddress(faultAddress)); err == nil {
			kfmt.Fprintf(w, "Mapping: frame 0x%x, flags 0x%x\n", frame.Address(), uintptr(flags))
		} else {
			kfmt.Fprintf(w, "Mapping: none\n")
		}
	}

	kfmt.Fprintf(w, "\nRegisters:\n")
	regs.DumpTo(w)

	panicFn(errPageFault)
}

// describeFaultCode prints the access that triggered a page fault.
func describeFaultCode(w io.Writer, code uint64) {
	switch {
	case code&faultReserved != 0:
		kfmt.Fprintf(w, "page table has reserved bit set")
	case code&faultFetch != 0:
		kfmt.Fprintf(w, "instruction fetch")
	case code&faultPresent != 0 && code&faultWrite != 0:
		kfmt.Fprintf(w, "page protection violation (write)")
	case code&faultPresent != 0:
		kfmt.Fprintf(w, "page protection violation (read)")
	case code&faultWrite != 0:
		kfmt.Fprintf(w, "write to non-present page")
	default:
		kfmt.Fprintf(w, "read from non-present page")
	}

	if code&faultUser != 0 {
		kfmt.Fprintf(w, " in user-mode")
	}
	kfmt.Fprintf(w, "\n")
}

// generalProtectionFaultHandler is invoked for various reasons:
// - segment errors (privilege, type or limit violations)
// - executing privileged instructions outside ring-0
// - attempts to access reserved or unimplemented CPU registers
func generalProtectionFaultHandler(regs *gate.Registers) {
	w := kfmt.GetOutputSink()
	kfmt.Fprintf(w, "\nGeneral protection fault, selector error code: 0x%x\n", regs.Info)
	kfmt.Fprintf(w, "Registers:\n")
	regs.DumpTo(w)

	panicFn(errGPF)
}
