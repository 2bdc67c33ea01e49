// Package device defines the interface shared by all device drivers.
package device

import (
	"io"
	"kestrel/kernel"
	"kestrel/kernel/kfmt"
)

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. If the driver init code
	// needs to log some output, it can use the supplied io.Writer in
	// conjunction with a call to kfmt.Fprint.
	DriverInit(io.Writer) *kernel.Error
}

// prefixBuf is a fixed-size io.Writer used to render driver name prefixes
// without allocating.
type prefixBuf struct {
	data [64]byte
	len  int
}

func (b *prefixBuf) Write(p []byte) (int, error) {
	n := copy(b.data[b.len:], p)
	b.len += n
	return n, nil
}

func (b *prefixBuf) Bytes() []byte {
	return b.data[:b.len]
}

// InitDrivers initializes each driver in order. Driver output is written to w
// with a "[hal] name(major.minor.patch): " prefix. Drivers whose
// initialization fails are reported and skipped. InitDrivers returns the
// number of drivers that were successfully initialized.
func InitDrivers(w io.Writer, drivers ...Driver) int {
	var (
		prefix prefixBuf
		pw     = kfmt.PrefixWriter{Sink: w}
		count  int
	)

	for _, drv := range drivers {
		if drv == nil {
			continue
		}

		prefix.len = 0
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&prefix, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		pw.Prefix = prefix.Bytes()

		if err := drv.DriverInit(&pw); err != nil {
			kfmt.Fprintf(&pw, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&pw, "initialized\n")
		count++
	}

	return count
}
