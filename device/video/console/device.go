// Package console contains drivers for text-mode display devices.
package console

// ScrollDir is the direction passed to Device.Scroll.
type ScrollDir uint8

const (
	ScrollDirUp ScrollDir = iota
	ScrollDirDown
)

// Dimension selects the unit of Device.Dimensions.
type Dimension uint8

const (
	Characters Dimension = iota
	Pixels
)

// Color is an index into the 16-color text mode palette.
type Color uint8

// The standard text mode palette.
const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGray
	DarkGray
	LightBlue
	LightGreen
	LightCyan
	LightRed
	Pink
	Yellow
	White
)

// Device is a character console. Coordinates are 1-based with (1, 1) at the
// top-left corner.
type Device interface {
	// Dimensions returns the console width and height measured in dim.
	Dimensions(dim Dimension) (uint32, uint32)

	DefaultColors() (fg, bg Color)

	// Fill blanks the width x height region at (x, y) using the given
	// colors.
	Fill(x, y, width, height uint32, fg, bg Color)

	// Scroll moves the console contents by lines in dir. The rows uncovered
	// by the scroll keep stale contents until the caller redraws them.
	Scroll(dir ScrollDir, lines uint32)

	// Write puts ch at (x, y).
	Write(ch byte, fg, bg Color, x, y uint32)
}
