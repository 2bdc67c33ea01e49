// Package pmm implements the kernel's physical frame allocator.
package pmm

import (
	"io"
	"kestrel/kernel"
	"kestrel/kernel/hal/bootinfo"
	"kestrel/kernel/kfmt"
	"kestrel/kernel/mm"
)

var (
	// ErrOutOfFrames is returned by AllocFrame once every usable frame
	// has been handed out.
	ErrOutOfFrames = &kernel.Error{Module: "boot_mem_alloc", Message: "out of physical frames"}
)

// BootMemAllocator implements a rudimentary physical memory allocator that
// hands out 4 KiB frames from the Usable regions reported by the bootloader.
//
// Frames are produced lazily in region report order and in ascending
// address order within a region. Frames that overlap the kernel image are
// skipped. Each region is walked with its own forward-moving cursor, so
// regions need not be reported in address order. As long as the reported
// Usable regions do not overlap, a frame is never returned twice. There is
// no way to free one.
type BootMemAllocator struct {
	info *bootinfo.BootInfo

	// allocCount tracks the total number of allocated frames.
	allocCount uint64

	// regionIndex is the region the cursor currently points into and
	// nextFrame the next candidate frame. inRegion is false until the
	// cursor has been moved to the start of regionIndex.
	regionIndex int
	inRegion    bool
	nextFrame   mm.Frame

	// Keep track of kernel location so we exclude this region.
	kernelStartAddr, kernelEndAddr   uintptr
	kernelStartFrame, kernelEndFrame mm.Frame
}

// NewBootMemAllocator returns an allocator that serves frames from the
// memory map in info, skipping the frames occupied by the kernel image.
func NewBootMemAllocator(info *bootinfo.BootInfo) *BootMemAllocator {
	alloc := &BootMemAllocator{}
	alloc.Init(info)
	return alloc
}

// Init resets the allocator state. The kernel image bounds are rounded out
// to whole frames.
func (alloc *BootMemAllocator) Init(info *bootinfo.BootInfo) {
	pageSizeMinus1 := mm.PageSize - 1

	alloc.info = info
	alloc.allocCount = 0
	alloc.regionIndex = 0
	alloc.inRegion = false
	alloc.nextFrame = 0
	alloc.kernelStartAddr = uintptr(info.KernelStart)
	alloc.kernelEndAddr = uintptr(info.KernelEnd)
	alloc.kernelStartFrame = mm.FrameFromAddress(alloc.kernelStartAddr)
	alloc.kernelEndFrame = mm.Frame(((alloc.kernelEndAddr+pageSizeMinus1) & ^pageSizeMinus1)>>mm.PageShift) - 1

	if alloc.kernelEndAddr <= alloc.kernelStartAddr {
		alloc.kernelStartFrame, alloc.kernelEndFrame = mm.InvalidFrame, 0
	}
}

// AllocFrame reserves the next available free frame. It returns
// ErrOutOfFrames once the memory map has been exhausted.
func (alloc *BootMemAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	for ; alloc.regionIndex < alloc.info.RegionCount(); alloc.regionIndex, alloc.inRegion = alloc.regionIndex+1, false {
		region := alloc.info.Region(alloc.regionIndex)
		if region.Kind != bootinfo.Usable || region.Length < uint64(mm.PageSize) {
			continue
		}

		// Reported addresses may not be page-aligned; round up to get
		// the start frame and round down to get the end frame
		pageSizeMinus1 := uint64(mm.PageSize - 1)
		regionStartFrame := mm.Frame(((region.Start + pageSizeMinus1) & ^pageSizeMinus1) >> mm.PageShift)
		regionEndFrame := mm.Frame((region.End() & ^pageSizeMinus1) >> mm.PageShift)
		if regionEndFrame <= regionStartFrame {
			continue
		}
		regionEndFrame--

		if !alloc.inRegion {
			alloc.nextFrame = regionStartFrame
			alloc.inRegion = true
		}

		if alloc.nextFrame >= alloc.kernelStartFrame && alloc.nextFrame <= alloc.kernelEndFrame {
			alloc.nextFrame = alloc.kernelEndFrame + 1
		}

		if alloc.nextFrame > regionEndFrame {
			continue
		}

		frame := alloc.nextFrame
		alloc.nextFrame++
		alloc.allocCount++
		return frame, nil
	}

	return mm.InvalidFrame, ErrOutOfFrames
}

// AllocCount returns the number of frames handed out so far.
func (alloc *BootMemAllocator) AllocCount() uint64 {
	return alloc.allocCount
}

// PrintMemoryMap writes the system memory map reported by the bootloader to w.
func (alloc *BootMemAllocator) PrintMemoryMap(w io.Writer) {
	var totalFree mm.Size

	kfmt.Fprintf(w, "[boot_mem_alloc] system memory map:\n")
	alloc.info.VisitRegions(func(region *bootinfo.MemoryRegion) bool {
		kfmt.Fprintf(w, "\t[0x%10x - 0x%10x], size: %10d, type: %s\n", region.Start, region.End(), region.Length, region.Kind.String())

		if region.Kind == bootinfo.Usable {
			totalFree += mm.Size(region.Length)
		}
		return true
	})
	kfmt.Fprintf(w, "[boot_mem_alloc] available memory: %dKb\n", uint64(totalFree/mm.Kb))
	kfmt.Fprintf(w, "[boot_mem_alloc] kernel loaded at 0x%x - 0x%x\n", alloc.kernelStartAddr, alloc.kernelEndAddr)
}
