package irq

import "sync/atomic"

// Programmable interval timer.
const (
	pitChannel0 = 0x40
	pitCommand  = 0x43

	// channel 0, lobyte/hibyte access, square wave generator
	pitModeSquareWave = 0x36

	pitBaseFrequency = 1193182

	// TimerFrequency is the rate at which the timer interrupt fires.
	TimerFrequency = 100
)

var ticks uint64

// SetTimerFrequency programs channel 0 of the interval timer to fire hz
// times per second. Frequencies the divisor can not express are clamped.
func (c *Controller) SetTimerFrequency(hz uint32) {
	divisor := uint32(0xffff)
	if hz > 0 {
		divisor = pitBaseFrequency / hz
	}

	switch {
	case divisor == 0:
		divisor = 1
	case divisor > 0xffff:
		divisor = 0xffff
	}

	c.ports.Out8(pitCommand, pitModeSquareWave)
	c.ports.Out8(pitChannel0, uint8(divisor))
	c.ports.Out8(pitChannel0, uint8(divisor>>8))
}

// Ticks returns the number of timer interrupts handled since boot.
func Ticks() uint64 {
	return atomic.LoadUint64(&ticks)
}
