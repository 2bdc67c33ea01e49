// Package bustest provides in-memory doubles for the bus interfaces.
package bustest

import "encoding/binary"

// PortAccess records a single port read or write.
type PortAccess struct {
	Write bool
	Port  uint16
	Width uint8
	Value uint32
}

// RecordingPorts implements bus.Ports. Writes are appended to Log; reads are
// served from Input, one queued value per read, and return the port's
// Default value (or 0) once the queue for a port is drained.
type RecordingPorts struct {
	Log     []PortAccess
	Input   map[uint16][]uint32
	Default map[uint16]uint32
}

// SetDefault sets the value returned by reads of port with an empty queue.
func (p *RecordingPorts) SetDefault(port uint16, val uint32) {
	if p.Default == nil {
		p.Default = make(map[uint16]uint32)
	}
	p.Default[port] = val
}

// Queue appends values that subsequent reads of port will return.
func (p *RecordingPorts) Queue(port uint16, values ...uint32) {
	if p.Input == nil {
		p.Input = make(map[uint16][]uint32)
	}
	p.Input[port] = append(p.Input[port], values...)
}

// Writes returns the values written to port in order.
func (p *RecordingPorts) Writes(port uint16) []uint32 {
	var out []uint32
	for _, a := range p.Log {
		if a.Write && a.Port == port {
			out = append(out, a.Value)
		}
	}
	return out
}

func (p *RecordingPorts) read(port uint16, width uint8) uint32 {
	val := p.Default[port]
	if queue := p.Input[port]; len(queue) > 0 {
		val, p.Input[port] = queue[0], queue[1:]
	}
	p.Log = append(p.Log, PortAccess{Port: port, Width: width, Value: val})
	return val
}

func (p *RecordingPorts) write(port uint16, width uint8, val uint32) {
	p.Log = append(p.Log, PortAccess{Write: true, Port: port, Width: width, Value: val})
}

func (p *RecordingPorts) In8(port uint16) uint8 { return uint8(p.read(port, 8)) }
func (p *RecordingPorts) Out8(port uint16, val uint8) { p.write(port, 8, uint32(val)) }
func (p *RecordingPorts) In16(port uint16) uint16 { return uint16(p.read(port, 16)) }
func (p *RecordingPorts) Out16(port uint16, val uint16) { p.write(port, 16, uint32(val)) }
func (p *RecordingPorts) In32(port uint16) uint32 { return p.read(port, 32) }
func (p *RecordingPorts) Out32(port uint16, val uint32) { p.write(port, 32, val) }

// Buffer implements bus.Memory on top of a byte slice. Multi-byte values
// are little-endian.
type Buffer struct {
	Data []byte
}

// NewBuffer returns a zeroed Buffer of the given size.
func NewBuffer(size int) *Buffer {
	return &Buffer{Data: make([]byte, size)}
}

func (b *Buffer) Size() uintptr { return uintptr(len(b.Data)) }

func (b *Buffer) Read8(offset uintptr) uint8 {
	if offset >= b.Size() {
		return 0
	}
	return b.Data[offset]
}

func (b *Buffer) Write8(offset uintptr, val uint8) {
	if offset >= b.Size() {
		return
	}
	b.Data[offset] = val
}

func (b *Buffer) Read16(offset uintptr) uint16 {
	if offset+2 > b.Size() {
		return 0
	}
	return binary.LittleEndian.Uint16(b.Data[offset:])
}

func (b *Buffer) Write16(offset uintptr, val uint16) {
	if offset+2 > b.Size() {
		return
	}
	binary.LittleEndian.PutUint16(b.Data[offset:], val)
}
