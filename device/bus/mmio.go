package bus

import "unsafe"

// Memory is a window onto device memory. Offsets are relative to the start of
// the window. Every call results in exactly one access of the given width;
// accesses are never merged, reordered with other accesses through the same
// Memory or elided.
type Memory interface {
	Size() uintptr
	Read8(offset uintptr) uint8
	Write8(offset uintptr, val uint8)
	Read16(offset uintptr) uint16
	Write16(offset uintptr, val uint16)
}

// Region is a Memory backed by a mapped virtual address range, e.g. a device
// frame buffer reached through the physical memory offset.
type Region struct {
	base uintptr
	size uintptr
}

// NewRegion returns a Region covering [base, base+size).
func NewRegion(base, size uintptr) Region {
	return Region{base: base, size: size}
}

// Size returns the length of the region in bytes.
func (r Region) Size() uintptr { return r.size }

// Read8 reads the byte at offset. Out of range reads return 0.
func (r Region) Read8(offset uintptr) uint8 {
	if offset >= r.size {
		return 0
	}
	return load8(r.base + offset)
}

// Write8 writes the byte at offset. Out of range writes are ignored.
func (r Region) Write8(offset uintptr, val uint8) {
	if offset >= r.size {
		return
	}
	store8(r.base+offset, val)
}

// Read16 reads the 16-bit word at offset. Out of range reads return 0.
func (r Region) Read16(offset uintptr) uint16 {
	if offset+2 > r.size {
		return 0
	}
	return load16(r.base + offset)
}

// Write16 writes the 16-bit word at offset. Out of range writes are ignored.
func (r Region) Write16(offset uintptr, val uint16) {
	if offset+2 > r.size {
		return
	}
	store16(r.base+offset, val)
}

// The accessors below are kept out of line so that the compiler can not
// combine or drop accesses that look redundant from Go's point of view.

//go:noinline
func load8(addr uintptr) uint8 { return *(*uint8)(unsafe.Pointer(addr)) }

//go:noinline
func store8(addr uintptr, val uint8) { *(*uint8)(unsafe.Pointer(addr)) = val }

//go:noinline
func load16(addr uintptr) uint16 { return *(*uint16)(unsafe.Pointer(addr)) }

//go:noinline
func store16(addr uintptr, val uint16) { *(*uint16)(unsafe.Pointer(addr)) = val }
