// Package gate builds the interrupt descriptor table and routes every
// interrupt, exception and hardware IRQ to the handler registered for it.
package gate

import (
	"encoding/binary"
	"io"
	"kestrel/kernel"
	"kestrel/kernel/cpu"
	"kestrel/kernel/kfmt"
	"unsafe"
)

// Registers contains a snapshot of all register values when an exception or
// interrupt occurs. Its layout matches the stack frame built by the entry
// stubs in gate_amd64.s.
type Registers struct {
	RAX uint64
	RBX uint64
	RCX uint64
	RDX uint64
	RSI uint64
	RDI uint64
	RBP uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64

	// Vector is the interrupt number that was raised.
	Vector uint64

	// Info contains the error code pushed by the CPU for exceptions that
	// provide one and zero otherwise.
	Info uint64

	// The return frame used by IRETQ
	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "RAX = %16x RBX = %16x\n", r.RAX, r.RBX)
	kfmt.Fprintf(w, "RCX = %16x RDX = %16x\n", r.RCX, r.RDX)
	kfmt.Fprintf(w, "RSI = %16x RDI = %16x\n", r.RSI, r.RDI)
	kfmt.Fprintf(w, "RBP = %16x\n", r.RBP)
	kfmt.Fprintf(w, "R8  = %16x R9  = %16x\n", r.R8, r.R9)
	kfmt.Fprintf(w, "R10 = %16x R11 = %16x\n", r.R10, r.R11)
	kfmt.Fprintf(w, "R12 = %16x R13 = %16x\n", r.R12, r.R13)
	kfmt.Fprintf(w, "R14 = %16x R15 = %16x\n", r.R14, r.R15)
	kfmt.Fprintf(w, "\n")
	kfmt.Fprintf(w, "VEC = %16x ERR = %16x\n", r.Vector, r.Info)
	kfmt.Fprintf(w, "RIP = %16x CS  = %16x\n", r.RIP, r.CS)
	kfmt.Fprintf(w, "RSP = %16x SS  = %16x\n", r.RSP, r.SS)
	kfmt.Fprintf(w, "RFL = %16x\n", r.RFlags)
}

// InterruptNumber describes an x86 interrupt/exception/trap slot.
type InterruptNumber uint8

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = InterruptNumber(0)

	// NMI (non-maskable-interrupt) is a hardware interrupt that indicates
	// issues with RAM or unrecoverable hardware problems.
	NMI = InterruptNumber(2)

	// Breakpoint is raised by the INT3 instruction. Execution resumes at
	// the instruction following it once the handler returns.
	Breakpoint = InterruptNumber(3)

	// Overflow occurs when the INTO instruction detects an overflow.
	Overflow = InterruptNumber(4)

	// BoundRangeExceeded occurs when the BOUND instruction is invoked with
	// an index out of range.
	BoundRangeExceeded = InterruptNumber(5)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = InterruptNumber(6)

	// DeviceNotAvailable occurs when the CPU attempts to execute an
	// FPU/MMX/SSE instruction while the FPU is unavailable.
	DeviceNotAvailable = InterruptNumber(7)

	// DoubleFault occurs when an exception is raised while the CPU tries
	// to deliver a previous one. It is also what a kernel stack overflow
	// turns into, so its handler must run on a separate stack.
	DoubleFault = InterruptNumber(8)

	// InvalidTSS occurs when the TSS points to an invalid task segment
	// selector.
	InvalidTSS = InterruptNumber(10)

	// SegmentNotPresent occurs when the CPU attempts to load a segment
	// whose present bit is clear.
	SegmentNotPresent = InterruptNumber(11)

	// StackSegmentFault occurs when attempting to push/pop from a
	// non-canonical stack address or when the stack limit checks fail.
	StackSegmentFault = InterruptNumber(12)

	// GPFException occurs when a general protection fault occurs.
	GPFException = InterruptNumber(13)

	// PageFaultException occurs when a page table entry is not present
	// or when a privilege and/or RW protection check fails.
	PageFaultException = InterruptNumber(14)

	// FloatingPointException occurs when an x87 instruction raises an
	// unmasked exception.
	FloatingPointException = InterruptNumber(16)

	// AlignmentCheck occurs when alignment checks are enabled and an
	// unaligned memory access is performed.
	AlignmentCheck = InterruptNumber(17)

	// MachineCheck occurs when the CPU detects internal errors such as
	// memory-, bus- or cache-related errors.
	MachineCheck = InterruptNumber(18)

	// SIMDFloatingPointException occurs when an unmasked SSE exception
	// occurs while CR4.OSXMMEXCPT is set.
	SIMDFloatingPointException = InterruptNumber(19)

	// ControlProtection is raised by CET control-flow violations.
	ControlProtection = InterruptNumber(21)

	// VMMCommunication and Security are AMD-specific exceptions.
	VMMCommunication = InterruptNumber(29)
	Security         = InterruptNumber(30)

	// FirstIRQ is the first vector available to hardware interrupts.
	// Vectors below it are reserved for CPU exceptions.
	FirstIRQ = InterruptNumber(32)
)

// HasErrorCode returns true if the CPU pushes an error code on the stack
// when delivering exception n.
func HasErrorCode(n InterruptNumber) bool {
	switch n {
	case DoubleFault, InvalidTSS, SegmentNotPresent, StackSegmentFault,
		GPFException, PageFaultException, AlignmentCheck, ControlProtection,
		VMMCommunication, Security:
		return true
	}
	return false
}

// HandlerKind tags the variant of an interrupt table entry.
type HandlerKind uint8

const (
	// KindHalt marks a vector without a registered handler. Raising it
	// dumps the CPU state and halts.
	KindHalt HandlerKind = iota

	// KindException is a CPU exception that does not push an error code.
	KindException

	// KindExceptionWithCode is a CPU exception whose error code is made
	// available to the handler via Registers.Info.
	KindExceptionWithCode

	// KindIRQ is a hardware interrupt. The table acknowledges it with an
	// end-of-interrupt after the handler returns.
	KindIRQ
)

// String implements fmt.Stringer for HandlerKind.
func (k HandlerKind) String() string {
	switch k {
	case KindHalt:
		return "halt"
	case KindException:
		return "exception"
	case KindExceptionWithCode:
		return "exception with code"
	case KindIRQ:
		return "irq"
	default:
		return "unknown"
	}
}

// Handler is invoked with interrupts disabled and a pointer to the register
// snapshot of the interrupted context. Changes to the snapshot are applied
// when the handler returns.
type Handler func(*Registers)

// Entry is a tagged interrupt table slot.
type Entry struct {
	Kind HandlerKind

	// IST selects the interrupt stack table slot (1-7) the CPU switches
	// to before invoking the handler. Zero means no stack switch.
	IST uint8

	Handler Handler
}

// maxIST is the highest interrupt stack table index supported by the TSS.
const maxIST = 7

// Table holds the handlers for all 256 vectors together with the hardware
// descriptor table generated from them.
type Table struct {
	entries [256]Entry

	// eoiFn acknowledges hardware interrupts.
	eoiFn func(InterruptNumber)

	idt  [256]idtDescriptor
	idtr [10]byte
}

var (
	// activeTable receives the interrupts routed by dispatchInterrupt.
	activeTable *Table

	// The following functions are mocked by tests and are automatically
	// inlined by the compiler.
	loadIDTFn         = cpu.LoadIDT
	fillGateEntriesFn = fillGateEntries
	haltFn            = cpu.Halt
	panicFn           = kfmt.Panic

	errKindMismatch      = &kernel.Error{Module: "gate", Message: "handler kind does not match the vector"}
	errISTOutOfRange     = &kernel.Error{Module: "gate", Message: "interrupt stack index out of range"}
	errAlreadyRegistered = &kernel.Error{Module: "gate", Message: "vector already has a handler"}
	errNilHandler        = &kernel.Error{Module: "gate", Message: "handler must not be nil"}
	errMissingEOI        = &kernel.Error{Module: "gate", Message: "irq handlers registered without an EOI function"}
	errUnhandled         = &kernel.Error{Module: "gate", Message: "unhandled interrupt"}
)

// HandleException registers fn for a CPU exception that does not push an
// error code.
func (t *Table) HandleException(n InterruptNumber, ist uint8, fn Handler) *kernel.Error {
	return t.register(n, Entry{Kind: KindException, IST: ist, Handler: fn})
}

// HandleExceptionWithCode registers fn for a CPU exception that pushes an
// error code.
func (t *Table) HandleExceptionWithCode(n InterruptNumber, ist uint8, fn Handler) *kernel.Error {
	return t.register(n, Entry{Kind: KindExceptionWithCode, IST: ist, Handler: fn})
}

// HandleIRQ registers fn for a hardware interrupt vector. An EOI function
// must be configured with SetEOI before the table is installed.
func (t *Table) HandleIRQ(n InterruptNumber, fn Handler) *kernel.Error {
	return t.register(n, Entry{Kind: KindIRQ, Handler: fn})
}

// SetEOI sets the function used to acknowledge hardware interrupts.
func (t *Table) SetEOI(fn func(InterruptNumber)) {
	t.eoiFn = fn
}

// Entry returns the entry registered for vector n.
func (t *Table) Entry(n InterruptNumber) Entry {
	return t.entries[n]
}

func (t *Table) register(n InterruptNumber, e Entry) *kernel.Error {
	if e.Handler == nil {
		return errNilHandler
	}
	if t.entries[n].Kind != KindHalt {
		return errAlreadyRegistered
	}
	if err := validateEntry(n, &e); err != nil {
		return err
	}

	t.entries[n] = e
	return nil
}

// Validate checks every slot of the table: each registered variant must
// match the vector it is installed at, stack switches must reference a valid
// IST slot and hardware interrupts require an EOI function.
func (t *Table) Validate() *kernel.Error {
	var hasIRQ bool
	for n := range t.entries {
		e := &t.entries[n]
		if e.Kind == KindHalt {
			continue
		}
		if e.Handler == nil {
			return errNilHandler
		}
		if err := validateEntry(InterruptNumber(n), e); err != nil {
			return err
		}
		hasIRQ = hasIRQ || e.Kind == KindIRQ
	}

	if hasIRQ && t.eoiFn == nil {
		return errMissingEOI
	}
	return nil
}

func validateEntry(n InterruptNumber, e *Entry) *kernel.Error {
	if e.IST > maxIST {
		return errISTOutOfRange
	}

	switch e.Kind {
	case KindException:
		if n >= FirstIRQ || HasErrorCode(n) {
			return errKindMismatch
		}
	case KindExceptionWithCode:
		if n >= FirstIRQ || !HasErrorCode(n) {
			return errKindMismatch
		}
	case KindIRQ:
		if n < FirstIRQ || e.IST != 0 {
			return errKindMismatch
		}
	default:
		return errKindMismatch
	}
	return nil
}

// idtDescriptor is a 16-byte IDT gate. It uses uint64 words to force 8-byte
// alignment.
type idtDescriptor [2]uint64

func newGateDescriptor(pc uintptr, codeSel uint16, ist uint8) idtDescriptor {
	const (
		present       = 1 << 15
		interruptGate = 0xe
	)

	w0 := uint32(codeSel)<<16 | uint32(pc&0xffff)
	w1 := uint32(pc&0xffff0000) | present | interruptGate<<8 | uint32(ist&maxIST)
	w2 := uint32(pc >> 32)
	return idtDescriptor{uint64(w1)<<32 | uint64(w0), uint64(w2)}
}

// encode fills in the hardware IDT. Every vector is marked present and points
// to its entry stub; vectors without a handler are routed to the halt path
// by dispatch. Interrupt gates clear IF on entry.
func (t *Table) encode(codeSel uint16, stubs *[256]uintptr) {
	for n := range t.idt {
		t.idt[n] = newGateDescriptor(stubs[n], codeSel, t.entries[n].IST)
	}

	// The IDT register is a 10 byte value: a 16-bit limit followed by
	// the 64-bit address.
	binary.LittleEndian.PutUint16(t.idtr[:2], uint16(unsafe.Sizeof(t.idt)-1))
	binary.LittleEndian.PutUint64(t.idtr[2:], uint64(uintptr(unsafe.Pointer(&t.idt))))
}

// Install validates t, loads its descriptor table into the CPU and makes it
// the target of all interrupts. codeSel is the kernel code segment selector.
func Install(t *Table, codeSel uint16) *kernel.Error {
	if err := t.Validate(); err != nil {
		return err
	}

	var stubs [256]uintptr
	fillGateEntriesFn(&stubs)
	t.encode(codeSel, &stubs)

	activeTable = t
	loadIDTFn(uintptr(unsafe.Pointer(&t.idtr)))
	return nil
}

// dispatchInterrupt is invoked by the interrupt entry stubs.
//
//go:nosplit
func dispatchInterrupt(regs *Registers) {
	if activeTable == nil {
		haltFn()
		return
	}
	activeTable.dispatch(regs)
}

func (t *Table) dispatch(regs *Registers) {
	n := InterruptNumber(regs.Vector)
	e := &t.entries[n]

	switch e.Kind {
	case KindHalt:
		kfmt.Printf("\nUnhandled interrupt: vector %d, error code 0x%x\n", uint8(n), regs.Info)
		regs.DumpTo(kfmt.GetOutputSink())
		panicFn(errUnhandled)
	case KindIRQ:
		e.Handler(regs)
		t.eoiFn(n)
	default:
		e.Handler(regs)
	}
}

// fillGateEntries stores the address of the entry stub for each vector.
func fillGateEntries(entries *[256]uintptr)

// interruptEntry is the common tail of all entry stubs.
func interruptEntry()
