package tty

import (
	"io"
	"kestrel/device"
	"kestrel/device/video/console"
	"testing"
)

func TestVTCursorPosition(t *testing.T) {
	vt := NewVT(4, 0)
	var term Device = &vt

	// Without a console the cursor can not be moved.
	term.SetCursorPosition(2, 2)
	if x, y := term.CursorPosition(); x != 1 || y != 1 {
		t.Fatalf("expected initial cursor position (1, 1); got (%d, %d)", x, y)
	}

	term.AttachTo(newMockConsole(80, 25))

	specs := []struct {
		inX, inY   uint32
		expX, expY uint32
	}{
		{20, 20, 20, 20},
		{100, 20, 80, 20},
		{10, 200, 10, 25},
		{0, 0, 1, 1},
		{100, 100, 80, 25},
	}

	for specIndex, spec := range specs {
		term.SetCursorPosition(spec.inX, spec.inY)
		if x, y := term.CursorPosition(); x != spec.expX || y != spec.expY {
			t.Errorf("[spec %d] expected cursor at (%d, %d); got (%d, %d)", specIndex, spec.expX, spec.expY, x, y)
		}
	}
}

func TestVTWrite(t *testing.T) {
	// \b on column 1 is ignored, "3" is overwritten by "4", the tab
	// expands to 4 spaces and \r returns to column 1 of the second line.
	input := []byte("\b123\b4\t5\n67\r68")
	exp := []struct {
		x, y uint32
		ch   uint8
	}{
		{1, 1, '1'},
		{2, 1, '2'},
		{3, 1, '4'},
		{4, 1, ' '},
		{7, 1, ' '},
		{8, 1, '5'},
		{1, 2, '6'},
		{2, 2, '8'},
	}

	for _, active := range []bool{false, true} {
		cons := newMockConsole(80, 25)
		term := NewVT(4, 0)

		if _, err := term.Write(input); err != io.ErrClosedPipe {
			t.Fatalf("expected ErrClosedPipe writing to a detached terminal; got %v", err)
		}

		term.AttachTo(cons)
		if active {
			term.SetState(StateActive)
			cons.writes = 0
		}
		term.SetColors(console.Green, console.Blue)

		n, err := term.Write(input)
		if err != nil || n != len(input) {
			t.Fatalf("[active: %t] expected to write %d bytes; wrote %d, err %v", active, len(input), n, err)
		}

		for _, e := range exp {
			got := term.cells[term.cellIndex(e.x, e.y)]
			if got != (cell{ch: e.ch, fg: console.Green, bg: console.Blue}) {
				t.Errorf("[active: %t] unexpected buffer cell at (%d, %d): %+v", active, e.x, e.y, got)
			}

			if active {
				if got := cons.at(e.x, e.y); got != (cell{ch: e.ch, fg: console.Green, bg: console.Blue}) {
					t.Errorf("unexpected console cell at (%d, %d): %+v", e.x, e.y, got)
				}
			}
		}

		// 1, 2, 3, \b, 4, 4 tab spaces, 5, 6, 7, 6, 8
		expWrites := 0
		if active {
			expWrites = 14
		}
		if cons.writes != expWrites {
			t.Errorf("[active: %t] expected %d console writes; got %d", active, expWrites, cons.writes)
		}

		if x, y := term.CursorPosition(); x != 3 || y != 2 {
			t.Errorf("[active: %t] expected cursor at (3, 2); got (%d, %d)", active, x, y)
		}
	}
}

func TestVTLineWrap(t *testing.T) {
	term := NewVT(4, 0)
	term.AttachTo(newMockConsole(10, 4))

	term.Write([]byte("0123456789ab"))

	if got := term.row(1); got != "0123456789" {
		t.Errorf("expected first row %q; got %q", "0123456789", got)
	}
	if got := term.row(2); got != "ab        " {
		t.Errorf("expected second row %q; got %q", "ab        ", got)
	}
}

func TestVTScroll(t *testing.T) {
	t.Run("viewport slides over the scrollback", func(t *testing.T) {
		cons := newMockConsole(10, 4)
		term := NewVT(4, 2)
		term.AttachTo(cons)
		term.SetState(StateActive)

		term.Write([]byte("l1\nl2\nl3\nl4\nl5"))

		if term.top != 1 {
			t.Fatalf("expected viewport to start at buffer line 1; got %d", term.top)
		}
		if cons.scrollUps != 1 {
			t.Fatalf("expected console to scroll up once; got %d", cons.scrollUps)
		}
		if got := term.row(4); got != "l5        " {
			t.Fatalf("expected last row %q; got %q", "l5        ", got)
		}

		// The first line is kept above the viewport.
		if got := term.cells[0].ch; got != 'l' || term.cells[1].ch != '1' {
			t.Fatalf("expected scrollback to keep the first line; got %q", []byte{term.cells[0].ch, term.cells[1].ch})
		}
	})

	t.Run("full buffer discards the oldest line", func(t *testing.T) {
		cons := newMockConsole(10, 4)
		term := NewVT(4, 1)
		term.AttachTo(cons)
		term.SetState(StateActive)

		term.Write([]byte("l1\nl2\nl3\nl4\nl5\nl6"))

		if exp := term.lines - term.height; term.top != exp {
			t.Fatalf("expected viewport to stop at buffer line %d; got %d", exp, term.top)
		}
		if cons.scrollUps != 2 {
			t.Fatalf("expected console to scroll up twice; got %d", cons.scrollUps)
		}

		for y, exp := range []string{"l3", "l4", "l5", "l6"} {
			if got := term.row(uint32(y + 1)); got != exp+"        " {
				t.Errorf("expected row %d to be %q; got %q", y+1, exp, got)
			}
		}

		// The console clears its last row after each scroll.
		if got := cons.fills; got != 2 {
			t.Fatalf("expected 2 console fills; got %d", got)
		}
	})

	t.Run("scrollback clamped to buffer size", func(t *testing.T) {
		term := NewVT(4, 1000)
		term.AttachTo(newMockConsole(80, 25))

		if exp := uint32(maxCells/80 - 25); term.scrollback != exp {
			t.Fatalf("expected scrollback to be clamped to %d; got %d", exp, term.scrollback)
		}

		for i := uint32(0); i < term.lines+5; i++ {
			term.WriteByte('\n')
		}

		if exp := term.lines - term.height; term.top != exp {
			t.Fatalf("expected viewport to stop at buffer line %d; got %d", exp, term.top)
		}
	})
}

func TestVTAttach(t *testing.T) {
	term := NewVT(4, 1)

	term.AttachTo(nil)
	if term.cons != nil || term.width != 0 || term.lines != 0 {
		t.Fatal("expected attaching a nil console to be a no-op")
	}

	term.AttachTo(newMockConsole(320, 200))
	if term.cons != nil {
		t.Fatal("expected attaching a console larger than the buffer to be a no-op")
	}

	cons := newMockConsole(80, 25)
	term.AttachTo(cons)
	if term.width != 80 || term.height != 25 || term.lines != 26 {
		t.Fatalf("expected an 80x25 viewport over 26 lines; got %dx%d over %d", term.width, term.height, term.lines)
	}

	for i := uint32(0); i < term.lines*term.width; i++ {
		if term.cells[i] != (cell{ch: ' ', fg: console.Cyan, bg: console.Black}) {
			t.Fatalf("expected cell %d to be blank; got %+v", i, term.cells[i])
		}
	}
}

func TestVTSetStateRedraws(t *testing.T) {
	cons := newMockConsole(10, 4)
	term := NewVT(4, 0)
	term.AttachTo(cons)

	term.SetColors(console.Red, console.White)
	term.Write([]byte("hidden\nvt"))

	if cons.writes != 0 {
		t.Fatalf("expected an inactive terminal not to write to the console; got %d writes", cons.writes)
	}

	term.SetState(StateActive)
	term.SetState(StateActive)

	if exp := 10 * 4; cons.writes != exp {
		t.Fatalf("expected activation to redraw %d cells; got %d", exp, cons.writes)
	}
	if got := term.State(); got != StateActive {
		t.Fatalf("expected terminal to be active; got %d", got)
	}

	if got := cons.at(1, 2); got != (cell{ch: 'v', fg: console.Red, bg: console.White}) {
		t.Fatalf("unexpected console cell at (1, 2): %+v", got)
	}
	if got := cons.at(3, 2); got != (cell{ch: ' ', fg: console.Cyan, bg: console.Black}) {
		t.Fatalf("expected untouched cells to keep the default colors; got %+v", got)
	}
}

func TestVTUnprintable(t *testing.T) {
	cons := newMockConsole(80, 25)
	term := NewVT(4, 0)
	term.AttachTo(cons)
	term.SetState(StateActive)

	term.Write([]byte{'a', 0x00, 0x1b, 0x7f, 0xe9, 'b'})

	for x, exp := range []uint8{'a', unprintable, unprintable, unprintable, unprintable, 'b'} {
		if got := cons.at(uint32(x+1), 1).ch; got != exp {
			t.Errorf("expected console char at column %d to be 0x%x; got 0x%x", x+1, exp, got)
		}
	}
}

func TestVTDriverInterface(t *testing.T) {
	vt := NewVT(0, 0)
	var dev device.Driver = &vt

	if err := dev.DriverInit(nil); err != nil {
		t.Fatal(err)
	}

	if dev.DriverName() != "vt" {
		t.Fatalf("unexpected driver name %q", dev.DriverName())
	}

	if major, minor, patch := dev.DriverVersion(); major+minor+patch == 0 {
		t.Fatal("DriverVersion() returned an invalid version number")
	}
}

// row returns the characters of viewport row y.
func (t *VT) row(y uint32) string {
	out := make([]byte, t.width)
	for x := uint32(1); x <= t.width; x++ {
		out[x-1] = t.cells[t.cellIndex(x, y)].ch
	}
	return string(out)
}

type mockConsole struct {
	width, height uint32
	cells         []cell

	writes    int
	fills     int
	scrollUps int
}

func newMockConsole(w, h uint32) *mockConsole {
	return &mockConsole{
		width:  w,
		height: h,
		cells:  make([]cell, w*h),
	}
}

func (cons *mockConsole) at(x, y uint32) cell {
	return cons.cells[(y-1)*cons.width+x-1]
}

func (cons *mockConsole) Dimensions(_ console.Dimension) (uint32, uint32) {
	return cons.width, cons.height
}

func (cons *mockConsole) DefaultColors() (console.Color, console.Color) {
	return console.Cyan, console.Black
}

func (cons *mockConsole) Fill(x, y, width, height uint32, fg, bg console.Color) {
	cons.fills++
	for fy := y; fy < y+height; fy++ {
		for fx := x; fx < x+width; fx++ {
			cons.cells[(fy-1)*cons.width+fx-1] = cell{ch: ' ', fg: fg, bg: bg}
		}
	}
}

func (cons *mockConsole) Scroll(dir console.ScrollDir, lines uint32) {
	if dir == console.ScrollDirUp {
		cons.scrollUps++
	}
}

func (cons *mockConsole) Write(b byte, fg, bg console.Color, x, y uint32) {
	cons.cells[(y-1)*cons.width+x-1] = cell{ch: b, fg: fg, bg: bg}
	cons.writes++
}
