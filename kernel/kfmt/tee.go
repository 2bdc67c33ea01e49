package kfmt

import "io"

// maxTeeSinks bounds the number of sinks a Tee can fan out to.
const maxTeeSinks = 4

// Tee duplicates every write to a fixed set of sinks. Unlike io.MultiWriter it
// stores its sinks in an array so it can be set up before the heap exists.
//
// Writes are not serialized. Only foreground code and synchronous exception
// handlers may write to a Tee; asynchronous interrupt handlers must not print
// as they could interleave with a write they preempted.
type Tee struct {
	sinks [maxTeeSinks]io.Writer
	count int
}

// Add appends w to the list of sinks. It returns false if the Tee is full.
func (t *Tee) Add(w io.Writer) bool {
	if w == nil || t.count == maxTeeSinks {
		return false
	}

	t.sinks[t.count] = w
	t.count++
	return true
}

// Write sends p to every sink. Sink errors are ignored so that a failing
// device never hides output from the others.
func (t *Tee) Write(p []byte) (int, error) {
	for i := 0; i < t.count; i++ {
		t.sinks[i].Write(p)
	}
	return len(p), nil
}
