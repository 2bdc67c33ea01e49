// Package cpu exposes the privileged x86_64 instructions used by the kernel.
// Every function without a body is implemented in cpu_amd64.s.
package cpu

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt disables interrupts and stops instruction execution. It never returns.
func Halt()

// WaitForInterrupt suspends execution until the next interrupt arrives. It is
// used by the idle loop and returns once the interrupt handler completes.
func WaitForInterrupt()

// Pause hints the CPU that the caller is spinning on a lock.
func Pause()

// Breakpoint raises a breakpoint exception (vector 3).
func Breakpoint()

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// ActivePDT returns the physical address of the currently active page table.
func ActivePDT() uintptr

// ReadCR2 returns the value stored in the CR2 register.
func ReadCR2() uint64

// EnableNoExecute sets the NXE bit of the EFER model specific register so
// that page table entries may carry the no-execute flag. Without it bit 63
// of an entry is reserved and any access through it faults.
func EnableNoExecute()

// LoadGDT loads the descriptor table pointer stored at ptrAddr into GDTR.
// The pointer is the 10-byte limit/base pair expected by LGDT.
func LoadGDT(ptrAddr uintptr)

// LoadIDT loads the interrupt descriptor table pointer stored at ptrAddr into
// IDTR.
func LoadIDT(ptrAddr uintptr)

// LoadTaskRegister loads the task state segment selector into TR.
func LoadTaskRegister(sel uint16)

// SetCodeSegment reloads CS with the supplied selector using a far return.
func SetCodeSegment(sel uint16)

// SetDataSegments loads sel into the DS, ES and SS registers. FS and GS are
// left untouched as the Go runtime keeps its TLS pointer there.
func SetDataSegments(sel uint16)

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8)

// PortWriteWord writes a uint16 value to the requested port.
func PortWriteWord(port uint16, val uint16)

// PortWriteDword writes a uint32 value to the requested port.
func PortWriteDword(port uint16, val uint32)

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8

// PortReadWord reads a uint16 value from the requested port.
func PortReadWord(port uint16) uint16

// PortReadDword reads a uint32 value from the requested port.
func PortReadDword(port uint16) uint32
