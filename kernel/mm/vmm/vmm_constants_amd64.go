package vmm

import "kestrel/kernel/mm"

const (
	// pageLevels is the depth of the amd64 page table hierarchy
	// (P4, P3, P2, P1).
	pageLevels = 4

	// entriesPerTable is the number of entries in a table of any level. Each
	// level consumes 9 bits of the virtual address.
	entriesPerTable = 512
	levelBits       = 9

	// entrySize is the size of a page table entry in bytes.
	entrySize = 8

	// ptePhysPageMask selects bits 12-51 of an entry, which hold the
	// physical address of the next table or the mapped frame.
	ptePhysPageMask = uintptr(0x000ffffffffff000)
)

// tableIndex returns the index of the entry for virtAddr in the table at
// level; level 0 is the P4 table.
func tableIndex(virtAddr uintptr, level uint8) uintptr {
	shift := mm.PageShift + uintptr(pageLevels-1-level)*levelBits
	return (virtAddr >> shift) & (entriesPerTable - 1)
}

// Page table entry flags.
const (
	FlagPresent PageTableEntryFlag = 1 << iota
	FlagRW
	FlagUserAccessible

	// FlagWriteThroughCaching selects write-through instead of write-back
	// caching.
	FlagWriteThroughCaching
	FlagDoNotCache

	// FlagAccessed and FlagDirty are set by the CPU.
	FlagAccessed
	FlagDirty

	// FlagHugePage marks a P3 or P2 entry that maps a 1G or 2M page
	// directly.
	FlagHugePage

	// FlagGlobal keeps the translation in the TLB across CR3 reloads.
	FlagGlobal

	FlagNoExecute PageTableEntryFlag = 1 << 63
)
