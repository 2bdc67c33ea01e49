// Command basicboot is a test kernel image that checks the state of a freshly
// booted kernel.
package main

import (
	"kestrel/device/video/console"
	"kestrel/kernel/cpu"
	"kestrel/kernel/irq"
	"kestrel/kernel/kfmt"
	"kestrel/kernel/kmain"
	"kestrel/kernel/ktest"
	"kestrel/kernel/mm"
	"kestrel/kernel/mm/vmm"
	"kestrel/kernel/trap"
	"unsafe"
)

var bootInfoPtr uintptr

var tests = []ktest.Test{
	{Name: "basicboot::println", Fn: testPrintln},
	{Name: "basicboot::println_many", Fn: testPrintlnMany},
	{Name: "basicboot::breakpoint", Fn: testBreakpoint},
	{Name: "basicboot::timer_ticks", Fn: testTimerTicks},
	{Name: "basicboot::frame_alloc", Fn: testFrameAlloc},
	{Name: "basicboot::map_round_trip", Fn: testMapRoundTrip},
	{Name: "basicboot::already_mapped", Fn: testAlreadyMapped},
}

func testPrintln(_ *ktest.T) {
	kfmt.Printf("test_println output\n")
}

func testPrintlnMany(_ *ktest.T) {
	for i := 0; i < 200; i++ {
		kfmt.Printf("test_println_many output %d\n", i)
	}
}

func testBreakpoint(t *ktest.T) {
	before := trap.Breakpoints()
	cpu.Breakpoint()
	t.AssertEqual("breakpoints", trap.Breakpoints(), before+1)
}

func testTimerTicks(t *ktest.T) {
	start := irq.Ticks()
	for irq.Ticks() == start {
		cpu.WaitForInterrupt()
	}
	t.Assert(irq.Ticks() > start, "timer did not tick")
}

func testFrameAlloc(t *ktest.T) {
	k := kmain.Active()
	info := k.BootInfo()

	var prev mm.Frame
	for i := 0; i < 16; i++ {
		frame, err := k.Frames().AllocFrame()
		if !t.AssertNoError("alloc", err) {
			return
		}

		addr := uint64(frame.Address())
		if !t.Assert(addr >= info.KernelEnd || addr+uint64(mm.PageSize) <= info.KernelStart, "frame overlaps the kernel image") {
			return
		}
		if i > 0 && !t.Assert(frame != prev, "frame returned twice") {
			return
		}
		prev = frame
	}
}

// testMapRoundTrip maps a fresh frame at an unused address and checks that
// a value written through the new mapping is visible through the physical
// memory window.
func testMapRoundTrip(t *ktest.T) {
	const page = mm.Page(0xdead_beef_000 >> mm.PageShift)

	k := kmain.Active()
	m := k.Mapper()

	frame, err := k.Frames().AllocFrame()
	if !t.AssertNoError("alloc", err) {
		return
	}

	if !t.AssertNoError("map", m.Map(page, frame, vmm.FlagRW)) {
		return
	}

	phys, err := m.Translate(page.Address() + 0x10)
	if !t.AssertNoError("translate", err) {
		return
	}
	t.AssertEqual("translated address", uint64(phys), uint64(frame.Address()+0x10))

	*(*uint64)(unsafe.Pointer(page.Address())) = 0xf021_f077_f065_f04e
	got := *(*uint64)(unsafe.Pointer(m.FrameToVirt(frame)))
	t.AssertEqual("value", got, 0xf021_f077_f065_f04e)
}

func testAlreadyMapped(t *ktest.T) {
	k := kmain.Active()
	m := k.Mapper()

	// The text mode frame buffer is always mapped through the physical
	// memory window.
	page := mm.PageFromAddress(m.FrameToVirt(mm.FrameFromAddress(console.VgaTextPhysAddr)))

	frame, err := k.Frames().AllocFrame()
	if !t.AssertNoError("alloc", err) {
		return
	}

	t.Assert(m.Map(page, frame, vmm.FlagRW) == vmm.ErrAlreadyMapped, "expected ErrAlreadyMapped")
}

func main() {
	kmain.Test(bootInfoPtr, tests)
}
