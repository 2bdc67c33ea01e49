// Package gdt sets up the kernel's global descriptor table and the task state
// segment that provides the double fault handler with a known-good stack.
package gdt

import (
	"encoding/binary"
	"kestrel/kernel/cpu"
	"kestrel/kernel/mm"
	"unsafe"
)

const (
	// DoubleFaultIST is the interrupt stack table index (1-based, as
	// encoded in an IDT gate) used by the double fault handler. It
	// refers to the first IST slot of the TSS.
	DoubleFaultIST = 1

	// DoubleFaultStackPages is the size of the double fault stack in
	// pages.
	DoubleFaultStackPages = 5
)

// Descriptor slots. The 64-bit TSS descriptor spans two slots.
const (
	// Mandatory null selector.
	_ = iota
	kernelCodeIndex
	kernelDataIndex
	tssIndex
	tssHighIndex
	descriptorCount
)

// Selectors contains the segment selectors for the descriptors in Tables.
type Selectors struct {
	Code uint16
	Data uint16
	TSS  uint16
}

type segmentFlags uint32

const (
	segFlagAccess  segmentFlags = 1 << 8
	segFlagWrite   segmentFlags = 1 << 9
	segFlagCode    segmentFlags = 1 << 11
	segFlagSystem  segmentFlags = 1 << 12
	segFlagPresent segmentFlags = 1 << 15
	segFlagLong    segmentFlags = 1 << 21
)

// segmentDescriptor represents a 64-bit segment descriptor.
type segmentDescriptor uint64

func newSegmentDescriptor(base, limit uint32, flags segmentFlags) segmentDescriptor {
	flags |= segFlagPresent
	w0 := base<<16 | limit&0xffff
	w1 := base&0xff000000 | limit&0xf0000 | uint32(flags) | (base>>16)&0xff
	return segmentDescriptor(uint64(w1)<<32 | uint64(w0))
}

// TaskState is the 104-byte 64-bit task state segment. Hardware task
// switching is unavailable in long mode; the TSS only supplies the ring
// stacks and the interrupt stack table.
type TaskState [104]byte

const (
	tssISTOffset   = 36
	tssIOMapOffset = 102
)

// SetIST stores the stack top for interrupt stack table index idx (1-7).
func (t *TaskState) SetIST(idx int, stackTop uint64) {
	binary.LittleEndian.PutUint64(t[tssISTOffset+(idx-1)*8:], stackTop)
}

// IST returns the stack top stored at interrupt stack table index idx (1-7).
func (t *TaskState) IST(idx int) uint64 {
	return binary.LittleEndian.Uint64(t[tssISTOffset+(idx-1)*8:])
}

// setIOMapBase points the I/O permission bitmap past the end of the segment
// which denies port access from rings other than 0.
func (t *TaskState) setIOMapBase(offset uint16) {
	binary.LittleEndian.PutUint16(t[tssIOMapOffset:], offset)
}

// stack is a statically reserved stack.
type stack [DoubleFaultStackPages * mm.PageSize]byte

// top returns the 16-byte aligned address just past the end of the stack.
func (s *stack) top() uint64 {
	stackTop := uintptr(unsafe.Pointer(&s[0])) + unsafe.Sizeof(*s)
	return uint64(stackTop &^ 0xf)
}

// Tables holds the descriptor table and TSS. Once loaded the structure must
// never move or change.
type Tables struct {
	gdt [descriptorCount]segmentDescriptor
	tss TaskState
	ptr [10]byte
}

// Build encodes the descriptor table for a TSS whose double fault IST entry
// points at istTop.
func (tb *Tables) Build(istTop uint64) Selectors {
	tb.tss = TaskState{}
	tb.tss.SetIST(DoubleFaultIST, istTop)
	tb.tss.setIOMapBase(uint16(unsafe.Sizeof(tb.tss)))

	tssAddr := uintptr(unsafe.Pointer(&tb.tss))
	tssLimit := uint32(unsafe.Sizeof(tb.tss) - 1)

	tb.gdt[0] = 0
	tb.gdt[kernelCodeIndex] = newSegmentDescriptor(0, 0, segFlagSystem|segFlagCode|segFlagLong)
	tb.gdt[kernelDataIndex] = newSegmentDescriptor(0, 0, segFlagSystem|segFlagWrite)

	// The 64-bit TSS descriptor spans two entries with the upper 32 bits
	// of the address stored in the second one.
	tb.gdt[tssIndex] = newSegmentDescriptor(uint32(tssAddr), tssLimit, segFlagAccess|segFlagCode)
	tb.gdt[tssHighIndex] = segmentDescriptor(uint64(tssAddr) >> 32)

	// The GDT register is a 10 byte value: a 16-bit limit followed by
	// the 64-bit address.
	binary.LittleEndian.PutUint16(tb.ptr[:2], uint16(unsafe.Sizeof(tb.gdt)-1))
	binary.LittleEndian.PutUint64(tb.ptr[2:], uint64(uintptr(unsafe.Pointer(&tb.gdt))))

	return Selectors{
		Code: kernelCodeIndex << 3,
		Data: kernelDataIndex << 3,
		TSS:  tssIndex << 3,
	}
}

var (
	// doubleFaultStack is the stack the CPU switches to when delivering
	// a double fault.
	doubleFaultStack stack

	// The following functions are mocked by tests and are automatically
	// inlined by the compiler.
	loadGDTFn          = cpu.LoadGDT
	setCodeSegmentFn   = cpu.SetCodeSegment
	setDataSegmentsFn  = cpu.SetDataSegments
	loadTaskRegisterFn = cpu.LoadTaskRegister
)

// DoubleFaultStackTop returns the address loaded into the double fault IST
// slot.
func DoubleFaultStackTop() uint64 {
	return doubleFaultStack.top()
}

// Load builds tb for the static double fault stack and activates it: GDTR
// is loaded, the segment registers are reloaded and the TSS is installed.
// Load must be called with interrupts disabled and before the interrupt
// table is installed.
func Load(tb *Tables) Selectors {
	sel := tb.Build(DoubleFaultStackTop())

	loadGDTFn(uintptr(unsafe.Pointer(&tb.ptr)))
	setCodeSegmentFn(sel.Code)
	setDataSegmentsFn(sel.Data)
	loadTaskRegisterFn(sel.TSS)

	return sel
}
