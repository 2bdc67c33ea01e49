// Command heapalloc is a test kernel image that exercises the kernel heap.
package main

import (
	"kestrel/kernel/kmain"
	"kestrel/kernel/ktest"
	"kestrel/kernel/mm/heap"
	"unsafe"
)

var bootInfoPtr uintptr

var tests = []ktest.Test{
	{Name: "heapalloc::simple_allocation", Fn: testSimpleAllocation},
	{Name: "heapalloc::large_vec", Fn: testLargeVec},
	{Name: "heapalloc::many_boxes", Fn: testManyBoxes},
	{Name: "heapalloc::many_boxes_long_lived", Fn: testManyBoxesLongLived},
	{Name: "heapalloc::out_of_memory", Fn: testOutOfMemory},
}

const wordSize = unsafe.Sizeof(uint64(0))

func testSimpleAllocation(t *ktest.T) {
	h := kmain.Active().Heap()

	a, err := h.Allocate(wordSize, wordSize)
	if !t.AssertNoError("allocate a", err) {
		return
	}
	b, err := h.Allocate(wordSize, wordSize)
	if !t.AssertNoError("allocate b", err) {
		return
	}

	*(*uint64)(unsafe.Pointer(a)) = 41
	*(*uint64)(unsafe.Pointer(b)) = 13
	t.AssertEqual("a", *(*uint64)(unsafe.Pointer(a)), 41)
	t.AssertEqual("b", *(*uint64)(unsafe.Pointer(b)), 13)

	t.AssertNoError("free a", h.Deallocate(a, wordSize, wordSize))
	t.AssertNoError("free b", h.Deallocate(b, wordSize, wordSize))
}

// testLargeVec fills a 1000 element array and checks its sum.
func testLargeVec(t *ktest.T) {
	const n = 1000

	h := kmain.Active().Heap()
	ptr, err := h.Allocate(n*wordSize, wordSize)
	if !t.AssertNoError("allocate", err) {
		return
	}

	vec := (*[n]uint64)(unsafe.Pointer(ptr))
	for i := range vec {
		vec[i] = uint64(i)
	}

	var sum uint64
	for i := range vec {
		sum += vec[i]
	}
	t.AssertEqual("sum", sum, (n-1)*n/2)
	t.AssertNoError("free", h.Deallocate(ptr, n*wordSize, wordSize))
}

// testManyBoxes allocates and frees more memory than the heap holds in
// total, which only works if freed blocks are reused.
func testManyBoxes(t *ktest.T) {
	h := kmain.Active().Heap()
	for i := uint64(0); i < uint64(heap.Size); i++ {
		ptr, err := h.Allocate(wordSize, wordSize)
		if !t.AssertNoError("allocate", err) {
			return
		}

		*(*uint64)(unsafe.Pointer(ptr)) = i
		if !t.AssertEqual("value", *(*uint64)(unsafe.Pointer(ptr)), i) {
			return
		}

		if !t.AssertNoError("free", h.Deallocate(ptr, wordSize, wordSize)) {
			return
		}
	}
}

// testManyBoxesLongLived keeps one allocation alive while churning through
// short-lived ones.
func testManyBoxesLongLived(t *ktest.T) {
	h := kmain.Active().Heap()
	before := h.Available()

	long, err := h.Allocate(wordSize, wordSize)
	if !t.AssertNoError("allocate long lived", err) {
		return
	}
	*(*uint64)(unsafe.Pointer(long)) = 1

	for i := uint64(0); i < uint64(heap.Size); i++ {
		ptr, err := h.Allocate(wordSize, wordSize)
		if !t.AssertNoError("allocate", err) {
			return
		}
		*(*uint64)(unsafe.Pointer(ptr)) = i
		if !t.AssertNoError("free", h.Deallocate(ptr, wordSize, wordSize)) {
			return
		}
	}

	t.AssertEqual("long lived value", *(*uint64)(unsafe.Pointer(long)), 1)
	t.AssertNoError("free long lived", h.Deallocate(long, wordSize, wordSize))
	t.AssertEqual("available", uint64(h.Available()), uint64(before))
}

func testOutOfMemory(t *ktest.T) {
	h := kmain.Active().Heap()

	_, err := h.Allocate(heap.Size+1, wordSize)
	t.Assert(err == heap.ErrOutOfMemory, "expected ErrOutOfMemory for an allocation larger than the heap")
}

func main() {
	kmain.Test(bootInfoPtr, tests)
}
