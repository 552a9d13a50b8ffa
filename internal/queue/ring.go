/*
 * MIT License
 *
 * Copyright (c) 2026 staticd contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package queue implements the per-worker bounded producer/consumer
// request queue: a fixed-capacity ring buffer of descriptors connecting
// a worker's receive loop (producer) to its handler goroutines
// (consumers).
package queue

import (
	"errors"
	"sync"
)

// ErrFull is returned by Enqueue when the queue has no free slot. The
// caller (the worker's receive loop) must respond 503 and close the
// descriptor itself -- back-pressure is never propagated upstream.
var ErrFull = errors.New("queue: full")

// ErrShutdown is returned by Dequeue once Terminate has been called and
// the queue has fully drained.
var ErrShutdown = errors.New("queue: shutdown")

// Ring is a fixed-capacity FIFO of descriptors. One slot of the
// underlying buffer is always reserved to distinguish empty from full
// without a separate counter, so usable capacity is cap-1.
type Ring struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf  []int
	head int
	tail int

	terminated bool
}

// New creates a Ring with the given total buffer capacity. capacity must
// be at least 2 (usable capacity 1); the acceptor-facing config
// validation enforces this independently.
func New(capacity int) *Ring {
	if capacity < 2 {
		capacity = 2
	}
	r := &Ring{buf: make([]int, capacity)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *Ring) empty() bool { return r.head == r.tail }

func (r *Ring) full() bool { return (r.tail+1)%len(r.buf) == r.head }

// Enqueue adds fd to the queue without blocking. It returns ErrFull if
// the queue is at capacity and wakes one waiting consumer on success.
func (r *Ring) Enqueue(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full() {
		return ErrFull
	}

	r.buf[r.tail] = fd
	r.tail = (r.tail + 1) % len(r.buf)

	r.cond.Signal()
	return nil
}

// Dequeue blocks until a descriptor is available, returning ErrShutdown
// once Terminate has been called and the queue is empty. Both the
// terminate flag and the emptiness check are read under the same mutex
// held across the wait, so a consumer woken spuriously (or by a Signal
// meant for another waiter) simply loops and re-checks both conditions.
func (r *Ring) Dequeue() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.empty() && !r.terminated {
		r.cond.Wait()
	}

	if r.empty() {
		// terminated and drained
		return -1, ErrShutdown
	}

	fd := r.buf[r.head]
	r.head = (r.head + 1) % len(r.buf)

	return fd, nil
}

// Terminate sets the monotonic terminate flag and wakes every waiter.
// Calling it more than once is safe; the flag never reverts to false.
func (r *Ring) Terminate() {
	r.mu.Lock()
	r.terminated = true
	r.mu.Unlock()

	r.cond.Broadcast()
}

// Terminated reports whether Terminate has been called.
func (r *Ring) Terminated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.terminated
}

// Len reports the number of descriptors currently queued, for
// diagnostics and tests.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tail >= r.head {
		return r.tail - r.head
	}
	return len(r.buf) - r.head + r.tail
}
