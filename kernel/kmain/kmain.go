// Package kmain wires the kernel subsystems together and contains the entry
// points invoked by the boot stub.
package kmain

import (
	"kestrel/device"
	"kestrel/device/bus"
	"kestrel/device/debugexit"
	"kestrel/device/keyboard"
	"kestrel/device/serial"
	"kestrel/device/tty"
	"kestrel/device/video/console"
	"kestrel/kernel"
	"kestrel/kernel/cpu"
	"kestrel/kernel/gate"
	"kestrel/kernel/gdt"
	"kestrel/kernel/hal/bootinfo"
	"kestrel/kernel/irq"
	"kestrel/kernel/kfmt"
	"kestrel/kernel/ktest"
	"kestrel/kernel/mm"
	"kestrel/kernel/mm/heap"
	"kestrel/kernel/mm/pmm"
	"kestrel/kernel/mm/vmm"
	"kestrel/kernel/trap"
)

var (
	// kern holds the state of the running kernel. It lives in the data
	// segment as the early boot stack is far too small for it.
	kern Kernel

	// active is the kernel whose frame allocator backs allocFrame.
	active *Kernel

	// The following functions are mocked by tests and are automatically
	// inlined by the compiler.
	loadGDTFn           = gdt.Load
	installIDTFn        = gate.Install
	newMapperFn         = vmm.NewActiveMapper
	initHeapFn          = (*heap.Heap).Init
	disableInterruptsFn = cpu.DisableInterrupts
	enableNoExecuteFn   = cpu.EnableNoExecute
	enableInterruptsFn  = cpu.EnableInterrupts
	waitForInterruptFn  = cpu.WaitForInterrupt

	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
)

// Kernel owns every process-wide subsystem. Its fields are initialized by
// Init in dependency order with interrupts disabled; once Init returns they
// are only reached through the Kernel or through the interrupt handlers
// registered by Init.
type Kernel struct {
	info *bootinfo.BootInfo

	ports bus.Ports

	// fb is the text mode frame buffer window used by Kmain and Test.
	fb bus.Region

	// Output devices. Every Printf call is fanned out to the serial port
	// and the terminal through out.
	serial  serial.Port
	console console.VgaTextConsole
	vt      tty.VT
	out     kfmt.Tee
	exit    debugexit.Device

	tables    gdt.Tables
	selectors gdt.Selectors
	idt       gate.Table
	pic       irq.Controller
	keyboard  keyboard.Buffer

	frames pmm.BootMemAllocator
	mapper vmm.Mapper
	heap   heap.Heap

	harness ktest.Harness
}

// Init brings up the kernel described by info. Device registers are reached
// through ports and the text mode frame buffer through fb.
//
// The initialization order is: no-execute support, output devices,
// descriptor tables, the frame allocator and page mapper, the interrupt
// table, the heap. Interrupts are enabled once everything else is ready.
func (k *Kernel) Init(info *bootinfo.BootInfo, ports bus.Ports, fb bus.Memory) *kernel.Error {
	disableInterruptsFn()
	enableNoExecuteFn()

	active = k
	k.info = info
	k.ports = ports

	k.initDevices(fb)

	k.selectors = loadGDTFn(&k.tables)

	k.frames.Init(info)
	k.mapper = newMapperFn(uintptr(info.PhysicalMemoryOffset), allocFrame)

	if err := k.initInterrupts(); err != nil {
		return err
	}

	if err := initHeapFn(&k.heap, &k.mapper, allocFrame); err != nil {
		return err
	}

	k.frames.PrintMemoryMap(&k.out)
	start, end := k.heap.Bounds()
	kfmt.Fprintf(&k.out, "[kmain] heap: 0x%x - 0x%x, %d bytes free\n", start, end, k.heap.Available())

	enableInterruptsFn()
	return nil
}

// initDevices sets up the serial port, the text console with its terminal
// and the exit device and makes the serial port and terminal the output
// sink. Driver output produced before the sink exists is buffered and
// replayed once it is registered.
func (k *Kernel) initDevices(fb bus.Memory) {
	k.serial = serial.NewPort(k.ports, serial.COM1)
	k.console = console.NewVgaTextConsole(console.VgaTextColumns, console.VgaTextRows, fb)
	k.vt = tty.NewVT(tty.DefaultTabWidth, tty.DefaultScrollback)
	k.exit = debugexit.NewDevice(k.ports)

	device.InitDrivers(kfmt.Writer, &k.serial, &k.console, &k.vt, &k.exit)

	k.vt.AttachTo(&k.console)
	k.vt.SetState(tty.StateActive)

	k.out = kfmt.Tee{}
	k.out.Add(&k.serial)
	k.out.Add(&k.vt)
	kfmt.SetOutputSink(&k.out)
}

// initInterrupts registers the exception and IRQ handlers, remaps the
// interrupt controllers and loads the interrupt table.
func (k *Kernel) initInterrupts() *kernel.Error {
	if err := trap.Install(&k.idt); err != nil {
		return err
	}

	if err := vmm.InstallFaultHandlers(&k.idt, &k.mapper); err != nil {
		return err
	}

	k.pic.Init(k.ports)
	if err := irq.Install(&k.idt, &k.pic, &k.keyboard); err != nil {
		return err
	}

	return installIDTFn(&k.idt, k.selectors.Code)
}

// allocFrame serves page table and heap frames from the active kernel's boot
// memory allocator. It is a plain function so it can be stored without
// allocating a closure.
func allocFrame() (mm.Frame, *kernel.Error) {
	return active.frames.AllocFrame()
}

// Heap returns the kernel heap.
func (k *Kernel) Heap() *heap.Heap { return &k.heap }

// Mapper returns the page mapper for the active page tables.
func (k *Kernel) Mapper() *vmm.Mapper { return &k.mapper }

// Frames returns the physical frame allocator.
func (k *Kernel) Frames() *pmm.BootMemAllocator { return &k.frames }

// Terminal returns the terminal attached to the text console.
func (k *Kernel) Terminal() *tty.VT { return &k.vt }

// Console returns the text console.
func (k *Kernel) Console() *console.VgaTextConsole { return &k.console }

// Keyboard returns the queue of scan codes received from the keyboard.
func (k *Kernel) Keyboard() *keyboard.Buffer { return &k.keyboard }

// BootInfo returns the boot information the kernel was started with.
func (k *Kernel) BootInfo() *bootinfo.BootInfo { return k.info }

// RunTests runs tests with the kernel test harness. The report is written to
// the serial port and the outcome to the exit device.
func (k *Kernel) RunTests(tests []ktest.Test) debugexit.ExitCode {
	k.harness = ktest.NewHarness(&k.serial, &k.exit)
	return k.harness.Run(tests)
}

// idle waits for the next interrupt and echoes any scan codes the keyboard
// handler queued in the meantime.
func (k *Kernel) idle() {
	waitForInterruptFn()

	for {
		scancode, ok := k.readScancode()
		if !ok {
			return
		}
		kfmt.Fprintf(&k.out, "[kbd] scancode 0x%2x\n", scancode)
	}
}

// readScancode dequeues one scan code with interrupts disabled; the keyboard
// handler takes the same buffer lock and would spin forever if it preempted
// the reader.
func (k *Kernel) readScancode() (uint8, bool) {
	disableInterruptsFn()
	scancode, ok := k.keyboard.TryRead()
	enableInterruptsFn()
	return scancode, ok
}

// Active returns the kernel started by Kmain or Test.
func Active() *Kernel {
	return active
}

// boot initializes the global kernel from the boot information block at
// bootInfoPtr.
func boot(bootInfoPtr uintptr) *Kernel {
	info := bootinfo.FromPointer(bootInfoPtr)

	k := &kern
	k.fb = bus.NewRegion(uintptr(info.PhysicalMemoryOffset)+console.VgaTextPhysAddr, console.VgaTextSize)
	if err := k.Init(info, bus.HardwarePorts, &k.fb); err != nil {
		kfmt.Panic(err)
	}

	return k
}

// Kmain is the only Go symbol that is visible (exported) from the boot stub.
// The stub passes the address of the boot information block prepared by the
// bootloader after setting up a stack and a minimal g0 struct.
//
// Kmain is not expected to return. If it does, the stub will halt the CPU.
//
//go:noinline
func Kmain(bootInfoPtr uintptr) {
	k := boot(bootInfoPtr)
	kfmt.Printf("Hello World!\n")

	for {
		k.idle()
	}
}

// Test is the entry point of test kernel images. It boots the kernel, runs
// tests and reports the outcome through the exit device. Test never
// returns.
//
//go:noinline
func Test(bootInfoPtr uintptr, tests []ktest.Test) {
	k := boot(bootInfoPtr)
	k.RunTests(tests)

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	kfmt.Panic(errKmainReturned)
}
