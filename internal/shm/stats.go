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

// Package shm backs the server's aggregate statistics counters with a
// single memfd-backed MAP_SHARED region, so the acceptor and every
// re-exec'd worker process update the same block of memory. Go gives no
// cgo-free pthread_mutex with PTHREAD_PROCESS_SHARED, so a small spinlock
// built on a CAS loop over the first word of the mapping takes its place.
package shm

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Layout of the shared region, all fields little-endian uint64 except
// the leading lock word:
//
//	offset  0: lock (uint32, CAS spinlock: 0 = free, 1 = held)
//	offset  8: activeConnections (int64, may go negative transiently during
//	           racing increments/decrements but never does so in practice
//	           since every decrement is paired with a prior increment)
//	offset 16: totalRequests
//	offset 24: bytesTransferred
//	offset 32: responseTimeMicros (accumulated, divide by totalRequests for mean)
//	offset 40: status2xx
//	offset 48: status3xx
//	offset 56: status4xx
//	offset 64: status5xx
const (
	offLock             = 0
	offActiveConns      = 8
	offTotalRequests    = 16
	offBytesTransferred = 24
	offResponseTime     = 32
	offStatus2xx        = 40
	offStatus3xx        = 48
	offStatus4xx        = 56
	offStatus5xx        = 64

	regionSize = 72
)

// Stats is a handle onto the shared counters block. The zero value is
// not usable; obtain one via Create (acceptor) or Open (worker, from an
// inherited descriptor).
type Stats struct {
	fd  int
	mem []byte
}

// Create allocates a new anonymous, shared memory-backed region via
// memfd_create and maps it MAP_SHARED. The returned Stats owns the
// descriptor; pass Fd() to exec.Cmd.ExtraFiles to share it with a
// worker, and call Open in the worker after re-exec.
func Create() (*Stats, error) {
	fd, err := unix.MemfdCreate("staticd-stats", 0)
	if err != nil {
		return nil, fmt.Errorf("shm: memfd_create: %w", err)
	}

	if err := unix.Ftruncate(fd, regionSize); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: ftruncate: %w", err)
	}

	mem, err := unix.Mmap(fd, 0, regionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}

	return &Stats{fd: fd, mem: mem}, nil
}

// Open maps an already-created region from an inherited descriptor
// (typically one fixed fd number beyond the socketpair end, set up by
// exec.Cmd.ExtraFiles).
func Open(fd int) (*Stats, error) {
	mem, err := unix.Mmap(fd, 0, regionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}
	return &Stats{fd: fd, mem: mem}, nil
}

// Fd returns the underlying descriptor, for listing in
// exec.Cmd.ExtraFiles.
func (s *Stats) Fd() int { return s.fd }

// Close unmaps the region. It does not close the descriptor; the owner
// of the *os.File wrapping it (if any) is responsible for that.
func (s *Stats) Close() error {
	return unix.Munmap(s.mem)
}

func (s *Stats) lockWord() *uint32 {
	return (*uint32)(unsafe.Pointer(&s.mem[offLock]))
}

// acquire spins on the CAS-protected lock word. It never blocks in the
// kernel and never sleeps while held -- callers must keep the critical
// section to a handful of arithmetic operations so a spinning peer isn't
// starved by a descheduled holder.
func (s *Stats) acquire() {
	word := s.lockWord()
	for !atomic.CompareAndSwapUint32(word, 0, 1) {
		runtime.Gosched()
	}
}

func (s *Stats) release() {
	atomic.StoreUint32(s.lockWord(), 0)
}

func (s *Stats) add(offset int, delta int64) {
	s.acquire()
	cur := int64(binary.LittleEndian.Uint64(s.mem[offset:]))
	binary.LittleEndian.PutUint64(s.mem[offset:], uint64(cur+delta))
	s.release()
}

func (s *Stats) read(offset int) int64 {
	s.acquire()
	v := int64(binary.LittleEndian.Uint64(s.mem[offset:]))
	s.release()
	return v
}

// ConnectionOpened increments the active connection gauge.
func (s *Stats) ConnectionOpened() { s.add(offActiveConns, 1) }

// ConnectionClosed decrements the active connection gauge and records
// one completed request of the given outcome.
func (s *Stats) ConnectionClosed(status int, bytes int64, elapsed time.Duration) {
	s.acquire()
	cur := int64(binary.LittleEndian.Uint64(s.mem[offActiveConns:]))
	binary.LittleEndian.PutUint64(s.mem[offActiveConns:], uint64(cur-1))

	total := int64(binary.LittleEndian.Uint64(s.mem[offTotalRequests:]))
	binary.LittleEndian.PutUint64(s.mem[offTotalRequests:], uint64(total+1))

	xfer := int64(binary.LittleEndian.Uint64(s.mem[offBytesTransferred:]))
	binary.LittleEndian.PutUint64(s.mem[offBytesTransferred:], uint64(xfer+bytes))

	rt := int64(binary.LittleEndian.Uint64(s.mem[offResponseTime:]))
	binary.LittleEndian.PutUint64(s.mem[offResponseTime:], uint64(rt+elapsed.Microseconds()))

	classOffset := statusClassOffset(status)
	classCur := int64(binary.LittleEndian.Uint64(s.mem[classOffset:]))
	binary.LittleEndian.PutUint64(s.mem[classOffset:], uint64(classCur+1))

	s.release()
}

func statusClassOffset(status int) int {
	switch {
	case status >= 200 && status < 300:
		return offStatus2xx
	case status >= 300 && status < 400:
		return offStatus3xx
	case status >= 400 && status < 500:
		return offStatus4xx
	default:
		return offStatus5xx
	}
}

// Snapshot is a point-in-time copy of every counter, safe to print or
// compare without holding the lock further.
type Snapshot struct {
	ActiveConnections  int64
	TotalRequests      int64
	BytesTransferred   int64
	ResponseTimeMicros int64
	Status2xx          int64
	Status3xx          int64
	Status4xx          int64
	Status5xx          int64
}

// AverageResponseTime returns the mean response latency across every
// completed request, or zero if none have completed yet.
func (sn Snapshot) AverageResponseTime() time.Duration {
	if sn.TotalRequests == 0 {
		return 0
	}
	return time.Duration(sn.ResponseTimeMicros/sn.TotalRequests) * time.Microsecond
}

// Snapshot reads every counter under a single lock acquisition, giving
// an internally consistent view for the periodic dashboard.
func (s *Stats) Snapshot() Snapshot {
	s.acquire()
	defer s.release()

	return Snapshot{
		ActiveConnections:  int64(binary.LittleEndian.Uint64(s.mem[offActiveConns:])),
		TotalRequests:      int64(binary.LittleEndian.Uint64(s.mem[offTotalRequests:])),
		BytesTransferred:   int64(binary.LittleEndian.Uint64(s.mem[offBytesTransferred:])),
		ResponseTimeMicros: int64(binary.LittleEndian.Uint64(s.mem[offResponseTime:])),
		Status2xx:          int64(binary.LittleEndian.Uint64(s.mem[offStatus2xx:])),
		Status3xx:          int64(binary.LittleEndian.Uint64(s.mem[offStatus3xx:])),
		Status4xx:          int64(binary.LittleEndian.Uint64(s.mem[offStatus4xx:])),
		Status5xx:          int64(binary.LittleEndian.Uint64(s.mem[offStatus5xx:])),
	}
}
