package mm

const (
	// PageShift is log2(PageSize).
	PageShift = uintptr(12)

	// PageSize is the size of a page and of a frame in bytes.
	PageSize = uintptr(1 << PageShift)
)

// Size is a memory size in bytes.
type Size uint64

const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)
