// Package tty implements terminals that render text output on a console.
package tty

import (
	"io"
	"kestrel/device/video/console"
)

const (
	// DefaultScrollback is the number of lines a terminal keeps above its
	// viewport.
	DefaultScrollback = 25

	// DefaultTabWidth is the number of spaces a tab expands to.
	DefaultTabWidth = 4

	// maxCells is the size of a terminal buffer in characters, scrollback
	// included.
	maxCells = 80 * (25 + DefaultScrollback)
)

// State is the state of a terminal.
type State uint8

const (
	// StateInactive terminals only update their buffer.
	StateInactive State = iota

	// StateActive terminals update their buffer and the attached console.
	StateActive
)

// Device is a terminal that can be written to and displayed on a console.
type Device interface {
	io.Writer
	io.ByteWriter

	// AttachTo makes cons the output of the terminal.
	AttachTo(cons console.Device)

	State() State
	SetState(State)

	// CursorPosition and SetCursorPosition use 1-based coordinates
	// relative to the viewport. SetCursorPosition clips to the viewport.
	CursorPosition() (x, y uint32)
	SetCursorPosition(x, y uint32)
}
