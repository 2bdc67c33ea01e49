package kernel

import "unsafe"

// Memset sets size bytes at the given address to the supplied value. Instead
// of looping over every byte it performs log2(size) copy calls, which is fast
// for the page-aligned regions it is mostly used with.
func Memset(addr uintptr, value byte, size uintptr) {
	if size == 0 {
		return
	}

	target := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)

	target[0] = value
	for index := uintptr(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}
}
