// Package heap implements the kernel heap: a fixed virtual address range
// backed by frames from the physical allocator and carved up by an
// address-ordered free list.
package heap

import (
	"kestrel/kernel"
	"kestrel/kernel/mm"
	"kestrel/kernel/mm/vmm"
	"kestrel/kernel/sync"
	"unsafe"
)

const (
	// Start is the virtual address where the heap begins.
	Start = uintptr(0x4444_4444_0000)

	// Size is the size of the heap in bytes.
	Size = uintptr(100 * mm.Kb)

	// minBlockSize is the smallest run the free list can track. Every
	// allocation is rounded up to a multiple of it so that each free run
	// can hold its own header.
	minBlockSize = unsafe.Sizeof(freeBlock{})
)

var (
	// ErrOutOfMemory is returned when no free run can satisfy a request.
	ErrOutOfMemory = &kernel.Error{Module: "heap", Message: "out of memory"}

	errInvalidAlign = &kernel.Error{Module: "heap", Message: "alignment must be a power of two"}
	errInvalidFree  = &kernel.Error{Module: "heap", Message: "deallocated block is not part of the heap"}
	errDoubleFree   = &kernel.Error{Module: "heap", Message: "deallocated block overlaps a free block"}

	// addRegionFn is mocked by tests which cannot touch the heap's
	// virtual address range.
	addRegionFn = (*Heap).AddRegion
)

// freeBlock is stored at the start of every free run.
type freeBlock struct {
	size uintptr

	// next is the address of the following free run (0 terminates the
	// list). Runs are kept sorted by address.
	next uintptr
}

func blockAt(addr uintptr) *freeBlock {
	return (*freeBlock)(unsafe.Pointer(addr))
}

// PageMapper is implemented by vmm.Mapper.
type PageMapper interface {
	Map(mm.Page, mm.Frame, vmm.PageTableEntryFlag) *kernel.Error
}

// Heap tracks the free runs of a contiguous memory region. All operations
// hold the heap lock; the heap must not be used from interrupt handlers.
type Heap struct {
	lock sync.Spinlock

	// head is a zero-sized sentinel that precedes the first free run.
	head freeBlock

	start uintptr
	end   uintptr
	free  uintptr
}

// Init maps every page in [Start, Start+Size) to a fresh frame obtained from
// allocFn and hands the range to the heap.
func (h *Heap) Init(m PageMapper, allocFn mm.FrameAllocatorFn) *kernel.Error {
	startPage, endPage := mm.PageRange(Start, Size)
	for page := startPage; page <= endPage; page++ {
		frame, err := allocFn()
		if err != nil {
			return err
		}

		if err = m.Map(page, frame, vmm.FlagRW|vmm.FlagNoExecute); err != nil {
			return err
		}
	}

	addRegionFn(h, Start, Size)
	return nil
}

// AddRegion resets the heap to manage the already mapped region
// [start, start+size). start is rounded up and the size rounded down to
// the block granularity.
func (h *Heap) AddRegion(start, size uintptr) {
	h.lock.Acquire()
	defer h.lock.Release()

	alignedStart := alignUp(start, minBlockSize)
	size = (size - (alignedStart - start)) &^ (minBlockSize - 1)

	h.start, h.end, h.free = alignedStart, alignedStart+size, size
	h.head.next = 0
	if size == 0 {
		return
	}

	block := blockAt(alignedStart)
	block.size = size
	block.next = 0
	h.head.next = alignedStart
}

// Allocate reserves size bytes aligned to align and returns the address of
// the reserved block. The same size and alignment must be passed to
// Deallocate when the block is released.
func (h *Heap) Allocate(size, align uintptr) (uintptr, *kernel.Error) {
	size, align, err := normalize(size, align)
	if err != nil {
		return 0, err
	}

	h.lock.Acquire()
	defer h.lock.Release()

	// First fit. Block addresses and sizes are multiples of
	// minBlockSize so any leftover on either side of the allocation can
	// hold a header.
	for prev := &h.head; prev.next != 0; prev = blockAt(prev.next) {
		blockStart := prev.next
		block := blockAt(blockStart)
		blockEnd := blockStart + block.size

		allocStart := alignUp(blockStart, align)
		allocEnd := allocStart + size
		if allocStart < blockStart || allocEnd > blockEnd || allocEnd < allocStart {
			continue
		}

		next := block.next
		if allocEnd < blockEnd {
			tail := blockAt(allocEnd)
			tail.size = blockEnd - allocEnd
			tail.next = next
			next = allocEnd
		}

		if allocStart > blockStart {
			block.size = allocStart - blockStart
			block.next = next
		} else {
			prev.next = next
		}

		h.free -= size
		return allocStart, nil
	}

	return 0, ErrOutOfMemory
}

// Deallocate returns a block obtained by Allocate to the free list and merges
// it with any free runs it borders.
func (h *Heap) Deallocate(ptr, size, align uintptr) *kernel.Error {
	size, _, err := normalize(size, align)
	if err != nil {
		return err
	}

	h.lock.Acquire()
	defer h.lock.Release()

	if ptr < h.start || ptr >= h.end || size > h.end-ptr || ptr&(minBlockSize-1) != 0 {
		return errInvalidFree
	}

	// Locate the last run that starts below ptr.
	prev := &h.head
	prevAddr := uintptr(0)
	for prev.next != 0 && prev.next < ptr {
		prevAddr = prev.next
		prev = blockAt(prev.next)
	}

	if (prevAddr != 0 && prevAddr+prev.size > ptr) || (prev.next != 0 && ptr+size > prev.next) {
		return errDoubleFree
	}

	block := blockAt(ptr)
	block.size = size
	block.next = prev.next
	prev.next = ptr

	if block.next != 0 && ptr+block.size == block.next {
		next := blockAt(block.next)
		block.size += next.size
		block.next = next.next
	}

	if prevAddr != 0 && prevAddr+prev.size == ptr {
		prev.size += block.size
		prev.next = block.next
	}

	h.free += size
	return nil
}

// Available returns the number of free bytes.
func (h *Heap) Available() uintptr {
	h.lock.Acquire()
	defer h.lock.Release()
	return h.free
}

// Bounds returns the region managed by the heap.
func (h *Heap) Bounds() (start, end uintptr) {
	return h.start, h.end
}

// normalize rounds size up to the block granularity and raises align to it.
// Requests that cannot be represented fail with ErrOutOfMemory.
func normalize(size, align uintptr) (uintptr, uintptr, *kernel.Error) {
	if align == 0 || align&(align-1) != 0 {
		return 0, 0, errInvalidAlign
	}

	if align < minBlockSize {
		align = minBlockSize
	}
	if size == 0 {
		size = minBlockSize
	}
	if size > ^uintptr(0)-minBlockSize {
		return 0, 0, ErrOutOfMemory
	}
	return alignUp(size, minBlockSize), align, nil
}

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}
