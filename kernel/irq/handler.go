package irq

import (
	"kestrel/device/keyboard"
	"kestrel/kernel"
	"kestrel/kernel/gate"
	"sync/atomic"
)

// keyboardDataPort holds the scan code of the last key event.
const keyboardDataPort = 0x60

var (
	// activeController receives the end-of-interrupt commands for the
	// table set up by Install. Interrupt handlers are plain functions so
	// the controller and decoder are registered here.
	activeController *Controller

	decoder keyboard.Decoder
)

// Install registers the timer and keyboard handlers with tbl, routes the
// table's end-of-interrupt acknowledgements to c and unmasks both lines.
// Scan codes are forwarded to dec which may be nil.
func Install(tbl *gate.Table, c *Controller, dec keyboard.Decoder) *kernel.Error {
	if err := tbl.HandleIRQ(Timer.Vector(), timerHandler); err != nil {
		return err
	}
	if err := tbl.HandleIRQ(Keyboard.Vector(), keyboardHandler); err != nil {
		return err
	}

	activeController = c
	decoder = dec
	tbl.SetEOI(endOfInterrupt)

	c.SetTimerFrequency(TimerFrequency)
	c.Enable(Timer)
	c.Enable(Keyboard)
	return nil
}

func endOfInterrupt(n gate.InterruptNumber) {
	activeController.EndOfInterrupt(n)
}

func timerHandler(_ *gate.Registers) {
	atomic.AddUint64(&ticks, 1)
}

// keyboardHandler reads one scan code. The controller will not raise
// another keyboard interrupt until the data port has been read.
func keyboardHandler(_ *gate.Registers) {
	scancode := activeController.ports.In8(keyboardDataPort)
	if decoder != nil {
		decoder.Decode(scancode)
	}
}
