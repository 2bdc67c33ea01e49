package console

import (
	"bytes"
	"kestrel/device"
	"kestrel/device/bus/bustest"
	"testing"
)

// newTestConsole returns an 80x25 console backed by an in-memory framebuffer.
func newTestConsole() (*VgaTextConsole, *bustest.Buffer) {
	fb := bustest.NewBuffer(VgaTextSize)
	cons := NewVgaTextConsole(VgaTextColumns, VgaTextRows, fb)
	return &cons, fb
}

// fill sets every cell of fb to val.
func fill(fb *bustest.Buffer, val uint16) {
	for i := uintptr(0); i < fb.Size(); i += 2 {
		fb.Write16(i, val)
	}
}

func cellAt(fb *bustest.Buffer, index uint32) uint16 {
	return fb.Read16(uintptr(index) << 1)
}

func TestVgaTextDimensions(t *testing.T) {
	cons := NewVgaTextConsole(40, 50, nil)
	var dev Device = &cons
	if w, h := dev.Dimensions(Characters); w != 40 || h != 50 {
		t.Fatalf("expected console dimensions to be 40x50; got %dx%d", w, h)
	}

	var (
		expW uint32 = 40 * 8
		expH uint32 = 50 * 16
	)

	if w, h := dev.Dimensions(Pixels); w != expW || h != expH {
		t.Fatalf("expected console dimensions to be %dx%d; got %dx%d", expW, expH, w, h)
	}
}

func TestVgaTextDefaultColors(t *testing.T) {
	cons, _ := newTestConsole()
	if fg, bg := cons.DefaultColors(); fg != Cyan || bg != Black {
		t.Fatalf("expected console default colors to be fg:%d, bg:%d; got fg:%d, bg: %d", Cyan, Black, fg, bg)
	}
}

func TestVgaTextFill(t *testing.T) {
	specs := []struct {
		// Input rect
		x, y, w, h uint32

		// Expected area to be cleared
		expStartX, expStartY, expEndX, expEndY uint32
	}{
		{
			0, 0, 500, 500,
			1, 1, 80, 25,
		},
		{
			10, 10, 11, 50,
			10, 10, 20, 25,
		},
		{
			10, 10, 110, 1,
			10, 10, 80, 10,
		},
		{
			70, 20, 20, 20,
			70, 20, 80, 39,
		},
		{
			90, 25, 20, 20,
			80, 25, 80, 25,
		},
		{
			12, 12, 5, 6,
			12, 12, 16, 17,
		},
		{
			80, 25, 1, 1,
			80, 25, 80, 25,
		},
	}

	cons, fb := newTestConsole()
	cw, ch := cons.Dimensions(Characters)

	testPat := uint16(0xDEAD)
	clearPat := cell(' ', Black, Black)

nextSpec:
	for specIndex, spec := range specs {
		fill(fb, testPat)

		cons.Fill(spec.x, spec.y, spec.w, spec.h, Black, Black)

		var x, y uint32
		for y = 1; y <= ch; y++ {
			for x = 1; x <= cw; x++ {
				fbVal := cellAt(fb, ((y-1)*cw)+(x-1))

				if x < spec.expStartX || y < spec.expStartY || x > spec.expEndX || y > spec.expEndY {
					if fbVal != testPat {
						t.Errorf("[spec %d] expected char at (%d, %d) not to be cleared", specIndex, x, y)
						continue nextSpec
					}
				} else {
					if fbVal != clearPat {
						t.Errorf("[spec %d] expected char at (%d, %d) to be cleared", specIndex, x, y)
						continue nextSpec
					}
				}
			}
		}
	}
}

func TestVgaTextScroll(t *testing.T) {
	cons, fb := newTestConsole()
	cw, ch := cons.Dimensions(Characters)

	fillPattern := func() {
		var x, y, index uint32
		for y = 0; y < ch; y++ {
			for x = 0; x < cw; x++ {
				fb.Write16(uintptr(index)<<1, uint16((y<<8)|x))
				index++
			}
		}
	}

	t.Run("up", func(t *testing.T) {
	nextSpec:
		for specIndex, lines := range []uint32{0, 1, 2} {
			fillPattern()
			cons.Scroll(ScrollDirUp, lines)

			// Check that rows 1 to (height - lines) have been scrolled up
			var x, y, index uint32
			for y = 0; y < ch-lines; y++ {
				for x = 0; x < cw; x++ {
					expVal := uint16(((y + lines) << 8) | x)
					if got := cellAt(fb, index); got != expVal {
						t.Errorf("[spec %d] expected value at (%d, %d) to be %d; got %d", specIndex, x, y, expVal, got)
						continue nextSpec
					}
					index++
				}
			}
		}
	})

	t.Run("down", func(t *testing.T) {
	nextSpec:
		for specIndex, lines := range []uint32{0, 1, 2} {
			fillPattern()
			cons.Scroll(ScrollDirDown, lines)

			// Check that rows lines to height have been scrolled down
			var x, y uint32
			index := lines * cw
			for y = lines; y < ch-lines; y++ {
				for x = 0; x < cw; x++ {
					expVal := uint16(((y - lines) << 8) | x)
					if got := cellAt(fb, index); got != expVal {
						t.Errorf("[spec %d] expected value at (%d, %d) to be %d; got %d", specIndex, x, y, expVal, got)
						continue nextSpec
					}
					index++
				}
			}
		}
	})

	t.Run("too many lines", func(t *testing.T) {
		fillPattern()
		cons.Scroll(ScrollDirUp, ch+1)
		if got := cellAt(fb, 1); got != 1 {
			t.Fatalf("expected scroll beyond the console height to be a no-op; got %d at (1, 0)", got)
		}
	})
}

func TestVgaTextWrite(t *testing.T) {
	cons, fb := newTestConsole()
	defaultFg, defaultBg := cons.DefaultColors()

	t.Run("off-screen", func(t *testing.T) {
		specs := []struct {
			x, y uint32
		}{
			{81, 26},
			{90, 24},
			{79, 30},
			{100, 100},
			{0, 1},
		}

		for specIndex, spec := range specs {
			fill(fb, 0)
			cons.Write('!', Blue, Green, spec.x, spec.y)

			for i := range fb.Data {
				if fb.Data[i] != 0 {
					t.Errorf("[spec %d] expected Write() with off-screen coords to be a no-op", specIndex)
					break
				}
			}
		}
	})

	specs := []struct {
		descr   string
		fg, bg  Color
		expAttr uint16
	}{
		{"success", Blue, Green, uint16(Green)<<4 | uint16(Blue)},
		{"fg out of range", Color(128), Green, uint16(Green)<<4 | uint16(defaultFg)},
		{"bg out of range", DarkGray, Color(255), uint16(defaultBg)<<4 | uint16(DarkGray)},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			fill(fb, 0)
			cons.Write('!', spec.fg, spec.bg, 2, 3)

			expVal := (spec.expAttr << 8) | uint16('!')
			if got := cellAt(fb, 2*80+1); got != expVal {
				t.Errorf("expected call to Write() to set cell (2, 3) to 0x%x; got 0x%x", expVal, got)
			}
		})
	}
}

func TestVgaTextDriverInterface(t *testing.T) {
	cons, fb := newTestConsole()
	var dev device.Driver = cons

	if dev.DriverName() == "" {
		t.Fatal("DriverName() returned an empty string")
	}

	if major, minor, patch := dev.DriverVersion(); major+minor+patch == 0 {
		t.Fatal("DriverVersion() returned an invalid version number")
	}

	t.Run("init success", func(t *testing.T) {
		var buf bytes.Buffer
		fill(fb, 0xDEAD)

		if err := dev.DriverInit(&buf); err != nil {
			t.Fatal(err)
		}

		exp := uint16(Cyan)<<8 | ' '
		for i := uint32(0); i < VgaTextColumns*VgaTextRows; i++ {
			if got := cellAt(fb, i); got != exp {
				t.Fatalf("expected cell %d to be cleared to 0x%x; got 0x%x", i, exp, got)
			}
		}

		if exp := "80x25 text mode\n"; buf.String() != exp {
			t.Fatalf("expected output %q; got %q", exp, buf.String())
		}
	})

	t.Run("framebuffer too small", func(t *testing.T) {
		small := NewVgaTextConsole(VgaTextColumns, VgaTextRows, bustest.NewBuffer(VgaTextSize-2))
		if err := small.DriverInit(&bytes.Buffer{}); err != errFramebufferTooSmall {
			t.Fatalf("expected errFramebufferTooSmall; got %v", err)
		}
	})
}
