// Package bus provides access to device registers through the x86 I/O port
// space and through memory-mapped regions.
package bus

import "kestrel/kernel/cpu"

// Ports reads and writes x86 I/O ports.
type Ports interface {
	In8(port uint16) uint8
	Out8(port uint16, val uint8)
	In16(port uint16) uint16
	Out16(port uint16, val uint16)
	In32(port uint16) uint32
	Out32(port uint16, val uint32)
}

// HardwarePorts issues real IN/OUT instructions.
var HardwarePorts Ports = hardwarePorts{}

type hardwarePorts struct{}

func (hardwarePorts) In8(port uint16) uint8 { return cpu.PortReadByte(port) }
func (hardwarePorts) Out8(port uint16, val uint8) { cpu.PortWriteByte(port, val) }
func (hardwarePorts) In16(port uint16) uint16 { return cpu.PortReadWord(port) }
func (hardwarePorts) Out16(port uint16, val uint16) { cpu.PortWriteWord(port, val) }
func (hardwarePorts) In32(port uint16) uint32 { return cpu.PortReadDword(port) }
func (hardwarePorts) Out32(port uint16, val uint32) { cpu.PortWriteDword(port, val) }
