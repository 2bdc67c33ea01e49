// Package sync provides the busy-wait lock used to guard state shared between
// the foreground kernel code and interrupt handlers.
package sync

import (
	"kestrel/kernel/cpu"
	"sync/atomic"
)

// attemptsBeforeYield is the number of failed acquisition attempts after which
// Acquire invokes yieldFn (when set).
const attemptsBeforeYield = 64

var (
	// pauseFn is mocked by tests and is automatically inlined by the compiler.
	pauseFn = cpu.Pause

	// yieldFn is nil in the kernel where there is no scheduler to yield
	// to. Tests set it to runtime.Gosched.
	yieldFn func()
)

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
//
// The kernel runs on a single core so a spinlock can only be contended by an
// interrupt handler preempting its holder. Code that takes a lock which is
// also used from an interrupt handler must disable interrupts first or the
// handler will spin forever.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	for attempt := uint32(1); !atomic.CompareAndSwapUint32(&l.state, 0, 1); attempt++ {
		if attempt%attemptsBeforeYield == 0 && yieldFn != nil {
			yieldFn()
			continue
		}
		pauseFn()
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
