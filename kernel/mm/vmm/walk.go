package vmm

import "unsafe"

// pageTableWalker is a function that can be passed to the walk method. The
// function receives the current page level and page table entry as its
// arguments. If the function returns false, then the page walk is aborted.
type pageTableWalker func(pteLevel uint8, pte *pageTableEntry) bool

// walk performs a page table walk for the given virtual address starting at
// the mapper's top-level table. Every table is reached through the physical
// memory offset window so the hierarchy needs no recursive entry. walkFn is
// invoked with the entry of each level; the entry is re-read after walkFn
// returns so that walkFn may install a missing table.
func (m *Mapper) walk(virtAddr uintptr, walkFn pageTableWalker) {
	tableAddr := m.p4Frame.Address()

	for level := uint8(0); level < pageLevels; level++ {
		entryAddr := tableAddr + tableIndex(virtAddr, level)*entrySize
		pte := (*pageTableEntry)(unsafe.Pointer(m.physToVirt(entryAddr)))

		if !walkFn(level, pte) {
			return
		}

		tableAddr = pte.Frame().Address()
	}
}

// pteForAddress returns the final page table entry that corresponds to a
// particular virtual address. The second return value is false if any level
// of the walk is not present or maps a huge page.
func (m *Mapper) pteForAddress(virtAddr uintptr) (*pageTableEntry, bool) {
	var entry *pageTableEntry

	m.walk(virtAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) || (pteLevel != pageLevels-1 && pte.HasFlags(FlagHugePage)) {
			entry = nil
			return false
		}

		entry = pte
		return true
	})

	return entry, entry != nil
}
