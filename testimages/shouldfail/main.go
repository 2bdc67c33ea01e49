// Command shouldfail is a test kernel image whose second test fails. Running
// it proves that a failed assertion is reported with "[failed]" and the
// Failed exit code.
package main

import (
	"kestrel/kernel/kmain"
	"kestrel/kernel/ktest"
)

var bootInfoPtr uintptr

var tests = []ktest.Test{
	{Name: "shouldfail::passes_before", Fn: passes},
	{Name: "shouldfail::fails", Fn: fails},
	{Name: "shouldfail::passes_after", Fn: passes},
}

func passes(t *ktest.T) {
	t.AssertEqual("sum", 1+1, 2)
}

func fails(t *ktest.T) {
	t.AssertEqual("sum", 1+1, 3)
}

func main() {
	kmain.Test(bootInfoPtr, tests)
}
