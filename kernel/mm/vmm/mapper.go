// Package vmm manages the kernel's 4-level page table hierarchy.
package vmm

import (
	"kestrel/kernel"
	"kestrel/kernel/cpu"
	"kestrel/kernel/mm"
)

var (
	// ErrInvalidMapping is returned when trying to lookup a virtual memory address that is not yet mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}

	// ErrAlreadyMapped is returned by Map when the target page already
	// has a mapping and the caller did not ask to overwrite it.
	ErrAlreadyMapped = &kernel.Error{Module: "vmm", Message: "page is already mapped"}

	errNoHugePageSupport = &kernel.Error{Module: "vmm", Message: "huge pages are not supported"}

	// flushTLBEntryFn is used by tests to override calls to flushTLBEntry
	// which will cause a fault if called in user-mode.
	flushTLBEntryFn = cpu.FlushTLBEntry

	// activePDTFn is used by tests to override calls to activePDT which
	// will cause a fault if called in user-mode.
	activePDTFn = cpu.ActivePDT
)

// MapMode controls how Map treats a page that is already mapped.
type MapMode uint8

const (
	// MapStrict fails with ErrAlreadyMapped if the page is mapped.
	MapStrict MapMode = iota

	// MapOverwrite replaces any existing mapping.
	MapOverwrite
)

// Mapper edits a page table hierarchy whose tables are reachable through a
// window that mirrors all physical memory at a fixed virtual offset.
type Mapper struct {
	physOffset uintptr
	p4Frame    mm.Frame
	allocFn    mm.FrameAllocatorFn
}

// NewMapper returns a Mapper for the hierarchy rooted at p4Frame. Intermediate
// tables are allocated with allocFn which, in the kernel, must be a plain
// function rather than a method value as the latter needs a heap allocation.
func NewMapper(physOffset uintptr, p4Frame mm.Frame, allocFn mm.FrameAllocatorFn) Mapper {
	return Mapper{
		physOffset: physOffset,
		p4Frame:    p4Frame,
		allocFn:    allocFn,
	}
}

// NewActiveMapper returns a Mapper for the page table hierarchy currently
// loaded in CR3.
func NewActiveMapper(physOffset uintptr, allocFn mm.FrameAllocatorFn) Mapper {
	return NewMapper(physOffset, ActiveP4Frame(), allocFn)
}

// ActiveP4Frame returns the frame holding the active top-level page table.
func ActiveP4Frame() mm.Frame {
	return mm.FrameFromAddress(activePDTFn() & ptePhysPageMask)
}

// P4Frame returns the frame holding the top-level table of this mapper.
func (m *Mapper) P4Frame() mm.Frame {
	return m.p4Frame
}

// PhysicalOffset returns the virtual address at which physical memory is
// mirrored.
func (m *Mapper) PhysicalOffset() uintptr {
	return m.physOffset
}

func (m *Mapper) physToVirt(physAddr uintptr) uintptr {
	return m.physOffset + physAddr
}

// FrameToVirt returns the virtual address through which the contents of
// frame can be accessed.
func (m *Mapper) FrameToVirt(frame mm.Frame) uintptr {
	return m.physToVirt(frame.Address())
}

// Map establishes a mapping between a virtual page and a physical memory
// frame. It fails with ErrAlreadyMapped if the page is already mapped.
func (m *Mapper) Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error {
	return m.MapPage(page, frame, flags, MapStrict)
}

// MapPage establishes a mapping between a virtual page and a physical memory
// frame. Missing intermediate tables are allocated using the mapper's frame
// allocator and cleared before use; they are created with FlagPresent|FlagRW
// so the permissions of the final entry alone decide access rights.
//
// On success the page resolves to exactly frame with flags|FlagPresent.
func (m *Mapper) MapPage(page mm.Page, frame mm.Frame, flags PageTableEntryFlag, mode MapMode) *kernel.Error {
	var err *kernel.Error

	m.walk(page.Address(), func(pteLevel uint8, pte *pageTableEntry) bool {
		// If we reached the last level all we need to do is to map the
		// frame in place and flag it as present and flush its TLB entry
		if pteLevel == pageLevels-1 {
			if pte.HasFlags(FlagPresent) && mode != MapOverwrite {
				err = ErrAlreadyMapped
				return false
			}

			*pte = 0
			pte.SetFrame(frame)
			pte.SetFlags(flags | FlagPresent)
			flushTLBEntryFn(page.Address())
			return true
		}

		if pte.HasFlags(FlagPresent) {
			if pte.HasFlags(FlagHugePage) {
				err = errNoHugePageSupport
				return false
			}
			return true
		}

		// Next table does not yet exist; we need to allocate a
		// physical frame for it and clear its contents.
		var newTableFrame mm.Frame
		if newTableFrame, err = m.allocFn(); err != nil {
			return false
		}

		kernel.Memset(m.FrameToVirt(newTableFrame), 0, mm.PageSize)
		*pte = 0
		pte.SetFrame(newTableFrame)
		pte.SetFlags(FlagPresent | FlagRW)
		return true
	})

	return err
}

// MapRegion maps size bytes starting at startPage to consecutive frames
// starting at startFrame. size is rounded up to a page boundary.
func (m *Mapper) MapRegion(startPage mm.Page, startFrame mm.Frame, size uintptr, flags PageTableEntryFlag) *kernel.Error {
	pageCount := (size + mm.PageSize - 1) >> mm.PageShift
	for i := uintptr(0); i < pageCount; i++ {
		if err := m.Map(startPage+mm.Page(i), startFrame+mm.Frame(i), flags); err != nil {
			return err
		}
	}
	return nil
}

// Unmap removes a mapping previously installed via a call to Map. The frame
// that backed the page is not released.
func (m *Mapper) Unmap(page mm.Page) *kernel.Error {
	pte, ok := m.pteForAddress(page.Address())
	if !ok {
		return ErrInvalidMapping
	}

	pte.ClearFlags(FlagPresent)
	flushTLBEntryFn(page.Address())
	return nil
}

// Translate returns the physical address that corresponds to the supplied
// virtual address or ErrInvalidMapping if the virtual address does not
// correspond to a mapped physical address.
func (m *Mapper) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	pte, ok := m.pteForAddress(virtAddr)
	if !ok {
		return 0, ErrInvalidMapping
	}

	return pte.Frame().Address() + PageOffset(virtAddr), nil
}

// Lookup returns the frame and flags of the mapping for page.
func (m *Mapper) Lookup(page mm.Page) (mm.Frame, PageTableEntryFlag, *kernel.Error) {
	pte, ok := m.pteForAddress(page.Address())
	if !ok {
		return mm.InvalidFrame, 0, ErrInvalidMapping
	}

	return pte.Frame(), pte.Flags(), nil
}

// PageOffset returns the offset within the page specified by a virtual
// address.
func PageOffset(virtAddr uintptr) uintptr {
	return virtAddr & (mm.PageSize - 1)
}
