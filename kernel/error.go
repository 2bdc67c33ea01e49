// Package kernel contains the types and helpers shared by every kernel
// package.
package kernel

// Error describes a kernel error. Kernel errors are always defined as global
// pointers to Error because they may be returned before the heap exists and
// errors.New would need the allocator.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
