// Package keyboard defines how raw PS/2 scan codes leave the interrupt
// handler. Translating scan codes into characters is left to Decoder
// implementations.
package keyboard

import "kestrel/kernel/sync"

// Decoder consumes raw scan codes. Decode is called from the keyboard
// interrupt handler with interrupts disabled and must not block.
type Decoder interface {
	Decode(scancode uint8)
}

// bufferSize is the number of scan codes a Buffer can hold. It must be a
// power of two.
const bufferSize = 64

// Buffer is a Decoder that queues scan codes for later consumption by
// foreground code. When the buffer is full the oldest scan code is dropped.
type Buffer struct {
	lock sync.Spinlock

	data    [bufferSize]uint8
	rIndex  uint32
	wIndex  uint32
	dropped uint32
}

// Decode implements Decoder.
func (b *Buffer) Decode(scancode uint8) {
	b.lock.Acquire()
	if b.wIndex-b.rIndex == bufferSize {
		b.rIndex++
		b.dropped++
	}
	b.data[b.wIndex&(bufferSize-1)] = scancode
	b.wIndex++
	b.lock.Release()
}

// TryRead returns the oldest queued scan code. The second return value is
// false if the buffer is empty.
//
// Foreground callers must disable interrupts around TryRead so that the
// keyboard handler can not spin on the buffer lock.
func (b *Buffer) TryRead() (uint8, bool) {
	b.lock.Acquire()
	defer b.lock.Release()

	if b.rIndex == b.wIndex {
		return 0, false
	}

	scancode := b.data[b.rIndex&(bufferSize-1)]
	b.rIndex++
	return scancode, true
}

// Dropped returns the number of scan codes that were discarded because the
// buffer was full.
func (b *Buffer) Dropped() uint32 {
	return b.dropped
}
