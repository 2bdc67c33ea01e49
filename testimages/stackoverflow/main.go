// Command stackoverflow is a test kernel image that recurses until the boot
// stack runs into its guard page. The resulting page fault can not be
// delivered on the exhausted stack, so the CPU raises a double fault which
// runs on its own interrupt stack and is reported as a failed test instead
// of resetting the machine.
package main

import (
	"kestrel/kernel/kmain"
	"kestrel/kernel/ktest"
)

var bootInfoPtr uintptr

// sink keeps the recursion from being optimized away.
var sink uint64

var tests = []ktest.Test{
	{Name: "stackoverflow::stack_overflow", Fn: stackOverflow},
}

func stackOverflow(t *ktest.T) {
	sink = recurse(0)
	t.Fail("execution continued after stack overflow")
}

//go:noinline
func recurse(depth uint64) uint64 {
	var frame [64]byte
	frame[depth%64] = byte(depth)
	return recurse(depth+1) + uint64(frame[(depth+1)%64])
}

func main() {
	kmain.Test(bootInfoPtr, tests)
}
