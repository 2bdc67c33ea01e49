package vmm

import (
	"kestrel/kernel/mm"
)

// PageTableEntryFlag is a bit of a page table entry.
type PageTableEntryFlag uintptr

// pageTableEntry holds the physical address of a frame or table in bits
// 12-51 and flags in the remaining bits.
type pageTableEntry uintptr

// HasFlags returns true if every bit of flags is set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return PageTableEntryFlag(pte)&flags == flags
}

// Flags returns the entry with its address bits cleared.
func (pte pageTableEntry) Flags() PageTableEntryFlag {
	return PageTableEntryFlag(uintptr(pte) &^ ptePhysPageMask)
}

func (pte *pageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte |= pageTableEntry(flags)
}

func (pte *pageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte &^= pageTableEntry(flags)
}

// Frame returns the frame the entry points to.
func (pte pageTableEntry) Frame() mm.Frame {
	return mm.FrameFromAddress(uintptr(pte) & ptePhysPageMask)
}

// SetFrame points the entry at frame, keeping its flags.
func (pte *pageTableEntry) SetFrame(frame mm.Frame) {
	*pte = pageTableEntry(uintptr(pte.Flags()) | frame.Address())
}
