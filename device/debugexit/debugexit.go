// Package debugexit drives the emulator's debug exit device, which stops the
// emulator with an exit status derived from the value written to it.
package debugexit

import (
	"io"
	"kestrel/device/bus"
	"kestrel/kernel"
	"kestrel/kernel/kfmt"
)

// Port is the I/O port the exit device is attached to.
const Port = 0xf4

// ExitCode is the value written to the exit device.
type ExitCode uint32

const (
	// Success reports that every test passed.
	Success ExitCode = 0x10

	// Failed reports a failed test or a fatal error.
	Failed ExitCode = 0x11
)

// HostStatus returns the exit status the emulator process terminates with
// when c is written to the device.
func (c ExitCode) HostStatus() int {
	return int(c)<<1 | 1
}

// String implements fmt.Stringer for ExitCode.
func (c ExitCode) String() string {
	switch c {
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Device is the debug exit device.
type Device struct {
	ports bus.Ports
}

// NewDevice returns a Device that writes to ports.
func NewDevice(ports bus.Ports) Device {
	return Device{ports: ports}
}

// Exit writes c to the device. Under emulation the call does not return; on
// real hardware the write has no effect and the caller is expected to halt.
func (d *Device) Exit(c ExitCode) {
	d.ports.Out32(Port, uint32(c))
}

// DriverName returns the name of this driver.
func (d *Device) DriverName() string {
	return "isa_debug_exit"
}

// DriverVersion returns the version of this driver.
func (d *Device) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit reports the port the device is expected at. The device has no
// state to initialize.
func (d *Device) DriverInit(w io.Writer) *kernel.Error {
	kfmt.Fprintf(w, "port 0x%x\n", uint16(Port))
	return nil
}
