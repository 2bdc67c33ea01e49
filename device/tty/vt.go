package tty

import (
	"io"
	"kestrel/device/video/console"
	"kestrel/kernel"
)

// unprintable replaces bytes outside the printable ASCII range.
const unprintable = 0xfe

// cell is a single character position in the terminal buffer.
type cell struct {
	ch     uint8
	fg, bg console.Color
}

// VT is a terminal that keeps a scrollback buffer of the lines written to it
// and mirrors the visible part of the buffer to a console while active.
//
// Besides printable ASCII, VT understands \r, \n, \b and \t; tabs expand to a
// fixed number of spaces. Any other byte is rendered as a filled square.
type VT struct {
	cons console.Device

	// Viewport dimensions; these match the attached console.
	width, height uint32

	// lines is the number of buffered lines: the viewport height plus the
	// scrollback.
	lines      uint32
	scrollback uint32

	// top is the index of the buffered line shown at the first viewport row.
	top uint32

	cells [maxCells]cell

	tabWidth uint8
	fg, bg   console.Color
	blank    cell

	// 1-based cursor coordinates relative to the viewport.
	cursorX, cursorY uint32

	state State
}

// NewVT returns a terminal that expands tabs to tabWidth spaces and keeps
// scrollback lines above the viewport. The scrollback shrinks when the
// terminal is attached to a console whose lines do not all fit the buffer.
func NewVT(tabWidth uint8, scrollback uint32) VT {
	return VT{
		tabWidth:   tabWidth,
		scrollback: scrollback,
		cursorX:    1,
		cursorY:    1,
	}
}

// AttachTo connects the terminal to cons and clears its buffer. Consoles
// larger than the buffer are ignored.
func (t *VT) AttachTo(cons console.Device) {
	if cons == nil {
		return
	}

	width, height := cons.Dimensions(console.Characters)
	if width == 0 || width*height > maxCells {
		return
	}

	if maxLines := uint32(maxCells) / width; height+t.scrollback > maxLines {
		t.scrollback = maxLines - height
	}

	t.cons = cons
	t.width, t.height = width, height
	t.lines = height + t.scrollback
	t.top = 0
	t.cursorX, t.cursorY = 1, 1

	t.fg, t.bg = cons.DefaultColors()
	t.blank = cell{ch: ' ', fg: t.fg, bg: t.bg}
	t.clear(0, t.lines*t.width)
}

// SetColors sets the colors used for subsequent writes.
func (t *VT) SetColors(fg, bg console.Color) {
	t.fg, t.bg = fg, bg
}

// State returns the terminal state.
func (t *VT) State() State {
	return t.state
}

// SetState updates the terminal state. Activating the terminal redraws the
// viewport on the attached console.
func (t *VT) SetState(newState State) {
	if t.state == newState {
		return
	}

	t.state = newState
	if t.state == StateActive {
		t.redraw()
	}
}

// CursorPosition returns the current cursor position.
func (t *VT) CursorPosition() (uint32, uint32) {
	return t.cursorX, t.cursorY
}

// SetCursorPosition moves the cursor to (x, y), clipped to the viewport.
func (t *VT) SetCursorPosition(x, y uint32) {
	if t.cons == nil {
		return
	}

	t.cursorX = clamp(x, 1, t.width)
	t.cursorY = clamp(y, 1, t.height)
}

// Write implements io.Writer.
func (t *VT) Write(data []byte) (int, error) {
	for count, b := range data {
		if err := t.WriteByte(b); err != nil {
			return count, err
		}
	}

	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (t *VT) WriteByte(b byte) error {
	if t.cons == nil {
		return io.ErrClosedPipe
	}

	switch b {
	case '\r':
		t.cursorX = 1
	case '\n':
		t.newline()
	case '\b':
		if t.cursorX > 1 {
			t.cursorX--
			t.put(' ')
		}
	case '\t':
		for i := uint8(0); i < t.tabWidth; i++ {
			t.put(' ')
			t.advance()
		}
	default:
		if b < ' ' || b > '~' {
			b = unprintable
		}
		t.put(b)
		t.advance()
	}

	return nil
}

// cellIndex returns the buffer index of viewport position (x, y).
func (t *VT) cellIndex(x, y uint32) uint32 {
	return (t.top+y-1)*t.width + x - 1
}

// put stores b with the current colors under the cursor.
func (t *VT) put(b byte) {
	t.cells[t.cellIndex(t.cursorX, t.cursorY)] = cell{ch: b, fg: t.fg, bg: t.bg}

	if t.state == StateActive {
		t.cons.Write(b, t.fg, t.bg, t.cursorX, t.cursorY)
	}
}

// advance moves the cursor one column right, wrapping at the end of the line.
func (t *VT) advance() {
	if t.cursorX++; t.cursorX > t.width {
		t.newline()
	}
}

// newline moves the cursor to the start of the next line. At the bottom of
// the viewport the viewport slides down over the buffer; once it reaches the
// end of the buffer, the oldest line is discarded instead.
func (t *VT) newline() {
	t.cursorX = 1

	if t.cursorY < t.height {
		t.cursorY++
		return
	}

	if t.top+t.height < t.lines {
		t.top++
	} else {
		start := t.top * t.width
		end := (t.top + t.height - 1) * t.width
		copy(t.cells[start:end], t.cells[start+t.width:end+t.width])
		t.clear(end, end+t.width)
	}

	if t.state == StateActive {
		t.cons.Scroll(console.ScrollDirUp, 1)
		t.cons.Fill(1, t.height, t.width, 1, t.blank.fg, t.blank.bg)
	}
}

// redraw copies the viewport contents to the console.
func (t *VT) redraw() {
	if t.cons == nil {
		return
	}

	for y := uint32(1); y <= t.height; y++ {
		for x := uint32(1); x <= t.width; x++ {
			c := t.cells[t.cellIndex(x, y)]
			t.cons.Write(c.ch, c.fg, c.bg, x, y)
		}
	}
}

// clear resets the buffer cells in [from, to) to blanks.
func (t *VT) clear(from, to uint32) {
	for i := from; i < to; i++ {
		t.cells[i] = t.blank
	}
}

func clamp(v, lo, hi uint32) uint32 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// DriverName returns the name of this driver.
func (t *VT) DriverName() string {
	return "vt"
}

// DriverVersion returns the version of this driver.
func (t *VT) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit initializes this driver.
func (t *VT) DriverInit(_ io.Writer) *kernel.Error { return nil }
