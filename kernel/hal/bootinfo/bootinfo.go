// Package bootinfo decodes the boot information block that the bootloader
// hands to the kernel entry point.
package bootinfo

import "unsafe"

// RegionKind defines the type of a MemoryRegion.
type RegionKind uint32

const (
	// Usable memory is free for the kernel to use.
	Usable RegionKind = iota

	// Reserved memory must never be touched.
	Reserved

	// AcpiReclaimable memory holds ACPI tables that may be reused once
	// they have been parsed.
	AcpiReclaimable

	// AcpiNvs memory must be preserved across sleep states.
	AcpiNvs

	// BadMemory has been reported as faulty by the firmware.
	BadMemory

	// Bootloader memory holds the loader's own data structures, including
	// the page tables that are active when the kernel starts.
	Bootloader

	// KernelImage memory contains the loaded kernel.
	KernelImage

	// FrameBuffer memory is the memory-mapped display.
	FrameBuffer
)

// String implements fmt.Stringer for RegionKind.
func (k RegionKind) String() string {
	switch k {
	case Usable:
		return "usable"
	case Reserved:
		return "reserved"
	case AcpiReclaimable:
		return "ACPI (reclaimable)"
	case AcpiNvs:
		return "ACPI NVS"
	case BadMemory:
		return "bad memory"
	case Bootloader:
		return "bootloader"
	case KernelImage:
		return "kernel image"
	case FrameBuffer:
		return "frame buffer"
	default:
		return "unknown"
	}
}

// MemoryRegion describes a contiguous range of physical memory reported by
// the bootloader.
type MemoryRegion struct {
	// The physical start address of the region.
	Start uint64

	// The region length in bytes.
	Length uint64

	// The region type.
	Kind RegionKind

	_ uint32
}

// End returns the first physical address past the region.
func (r *MemoryRegion) End() uint64 {
	return r.Start + r.Length
}

// BootInfo is the block the bootloader passes to the kernel entry point. Its
// layout is shared with the loader and is never validated at runtime.
type BootInfo struct {
	// PhysicalMemoryOffset is the virtual address at which the loader
	// mapped the whole physical address space.
	PhysicalMemoryOffset uint64

	// KernelStart and KernelEnd are the physical bounds of the loaded
	// kernel image.
	KernelStart uint64
	KernelEnd   uint64

	// regionsAddr points to an array of regionCount MemoryRegion entries
	// sorted by the order in which the loader reported them.
	regionsAddr uint64
	regionCount uint64
}

// FromPointer returns the BootInfo stored at the supplied address.
func FromPointer(ptr uintptr) *BootInfo {
	return (*BootInfo)(unsafe.Pointer(ptr))
}

// SetRegions points the BootInfo at the supplied region list. It is used by
// loaders written in Go and by tests to build BootInfo values in memory.
func (b *BootInfo) SetRegions(regions []MemoryRegion) {
	b.regionCount = uint64(len(regions))
	b.regionsAddr = 0
	if len(regions) != 0 {
		b.regionsAddr = uint64(uintptr(unsafe.Pointer(&regions[0])))
	}
}

// RegionCount returns the number of reported memory regions.
func (b *BootInfo) RegionCount() int {
	return int(b.regionCount)
}

// Region returns the memory region at index i in report order.
func (b *BootInfo) Region(i int) *MemoryRegion {
	return (*MemoryRegion)(unsafe.Pointer(uintptr(b.regionsAddr) + uintptr(i)*unsafe.Sizeof(MemoryRegion{})))
}

// RegionVisitor is invoked by VisitRegions for each memory region. The
// visitor returns true to continue or false to abort the scan.
type RegionVisitor func(region *MemoryRegion) bool

// VisitRegions invokes visitor for each memory region in report order.
func (b *BootInfo) VisitRegions(visitor RegionVisitor) {
	for i := 0; i < b.RegionCount(); i++ {
		if !visitor(b.Region(i)) {
			return
		}
	}
}
