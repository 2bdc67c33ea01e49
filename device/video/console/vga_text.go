package console

import (
	"io"
	"kestrel/device/bus"
	"kestrel/kernel"
	"kestrel/kernel/kfmt"
)

const (
	// VgaTextPhysAddr is the physical address of the text mode frame
	// buffer.
	VgaTextPhysAddr = 0xb8000

	// VgaTextColumns and VgaTextRows are the dimensions of text mode 0x3.
	VgaTextColumns = 80
	VgaTextRows    = 25

	// VgaTextSize is the size of the text mode frame buffer in bytes.
	VgaTextSize = VgaTextColumns * VgaTextRows * 2
)

var errFramebufferTooSmall = &kernel.Error{Module: "vga_text_console", Message: "framebuffer is smaller than the console"}

// VgaTextConsole drives the 80x25 text mode frame buffer. Every cell is a
// 16-bit word: the character in the low byte and the colors in the high
// byte, background in the upper nibble. The frame buffer is only accessed
// through a bus.Memory so writes reach the device in program order.
//
// Cleared cells hold a space in cyan on black.
type VgaTextConsole struct {
	width, height uint32

	fb bus.Memory

	defaultFg, defaultBg Color
}

// NewVgaTextConsole returns a columns x rows console backed by fb.
func NewVgaTextConsole(columns, rows uint32, fb bus.Memory) VgaTextConsole {
	return VgaTextConsole{
		width:     columns,
		height:    rows,
		fb:        fb,
		defaultFg: Cyan,
		defaultBg: Black,
	}
}

// Dimensions implements Device. Text mode uses 8x16 pixel glyphs.
func (cons *VgaTextConsole) Dimensions(dim Dimension) (uint32, uint32) {
	if dim == Characters {
		return cons.width, cons.height
	}
	return cons.width * 8, cons.height * 16
}

// DefaultColors implements Device.
func (cons *VgaTextConsole) DefaultColors() (fg Color, bg Color) {
	return cons.defaultFg, cons.defaultBg
}

func cell(ch byte, fg, bg Color) uint16 {
	return uint16(bg&0xf)<<12 | uint16(fg&0xf)<<8 | uint16(ch)
}

// offset returns the frame buffer offset of the cell at index i, counted
// row-major from the top-left corner.
func offset(i uint32) uintptr {
	return uintptr(i) * 2
}

// Fill implements Device. The region is clipped to the console.
func (cons *VgaTextConsole) Fill(x, y, width, height uint32, fg, bg Color) {
	x = min(max(x, 1), cons.width)
	y = min(max(y, 1), cons.height)
	width = min(width, cons.width-x+1)
	height = min(height, cons.height-y+1)

	blank := cell(' ', fg, bg)
	for row := y - 1; row < y-1+height; row++ {
		first := row*cons.width + x - 1
		for i := first; i < first+width; i++ {
			cons.fb.Write16(offset(i), blank)
		}
	}
}

// Scroll implements Device. Scrolling by zero lines or by more than the
// console height is ignored.
func (cons *VgaTextConsole) Scroll(dir ScrollDir, lines uint32) {
	if lines == 0 || lines > cons.height {
		return
	}

	shift := lines * cons.width
	count := (cons.height - lines) * cons.width

	switch dir {
	case ScrollDirUp:
		for i := uint32(0); i < count; i++ {
			cons.fb.Write16(offset(i), cons.fb.Read16(offset(i+shift)))
		}
	case ScrollDirDown:
		// Copy backwards so that rows are read before they are overwritten.
		for i := count; i > 0; i-- {
			cons.fb.Write16(offset(i-1+shift), cons.fb.Read16(offset(i-1)))
		}
	}
}

// Write implements Device. Positions outside the console are ignored and
// colors outside the palette are replaced by the defaults.
func (cons *VgaTextConsole) Write(ch byte, fg, bg Color, x, y uint32) {
	if x < 1 || x > cons.width || y < 1 || y > cons.height {
		return
	}

	if fg > White {
		fg = cons.defaultFg
	}
	if bg > White {
		bg = cons.defaultBg
	}

	cons.fb.Write16(offset((y-1)*cons.width+x-1), cell(ch, fg, bg))
}

// DriverName returns the name of this driver.
func (cons *VgaTextConsole) DriverName() string {
	return "vga_text_console"
}

// DriverVersion returns the version of this driver.
func (cons *VgaTextConsole) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit checks that the framebuffer can hold the console and clears it.
func (cons *VgaTextConsole) DriverInit(w io.Writer) *kernel.Error {
	if cons.fb == nil || cons.fb.Size() < uintptr(cons.width*cons.height*2) {
		return errFramebufferTooSmall
	}

	cons.Fill(1, 1, cons.width, cons.height, cons.defaultFg, cons.defaultBg)
	kfmt.Fprintf(w, "%dx%d text mode\n", cons.width, cons.height)
	return nil
}
