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

// Package accesslog writes Common Log Format entries for every request
// a worker completes, batching them through a fixed-size in-memory
// buffer that only touches disk when full or on a periodic flush tick.
// A single generation of rotation keeps the active file bounded: once it
// crosses the size threshold, it is renamed aside to a ".old" sibling
// (overwriting any previous one) before the next write recreates it.
package accesslog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	bufferSize     = 4096
	maxLogFileSize = 10 * 1024 * 1024
	flushInterval  = 1 * time.Second
)

// Logger batches Common Log Format lines in memory and flushes them to
// path, rotating at maxLogFileSize. The zero value is not usable;
// construct with Open.
type Logger struct {
	path string

	mu  sync.Mutex
	buf []byte

	stop chan struct{}
	done chan struct{}
}

// Open prepares a Logger targeting path. The file itself is created
// lazily on first flush, matching the original's append-only fopen on
// demand.
func Open(path string) *Logger {
	return &Logger{
		path: path,
		buf:  make([]byte, 0, bufferSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Entry is one completed request, in the shape the Common Log Format
// line needs.
type Entry struct {
	ClientAddr string
	Method     string
	Path       string
	Status     int
	Bytes      int64
	When       time.Time
}

func formatEntry(e Entry) string {
	ts := e.When.Format("02/Jan/2006:15:04:05 -0700")
	return fmt.Sprintf("%s - - [%s] \"%s %s HTTP/1.1\" %d %d\n",
		e.ClientAddr, ts, e.Method, e.Path, e.Status, e.Bytes)
}

// Log appends one Common Log Format line to the in-memory buffer,
// flushing first if the new line would not fit. A line larger than the
// entire buffer is written directly to the file, bypassing the buffer.
func (l *Logger) Log(e Entry) {
	line := formatEntry(e)

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.buf)+len(line) > bufferSize {
		l.flushLocked()
	}

	if len(line) > bufferSize {
		l.writeDirect([]byte(line))
		return
	}

	l.buf = append(l.buf, line...)
}

func (l *Logger) rotateIfNeededLocked() {
	info, err := os.Stat(l.path)
	if err != nil {
		return
	}
	if info.Size() >= maxLogFileSize {
		_ = os.Rename(l.path, l.path+".old")
	}
}

func (l *Logger) writeDirect(p []byte) {
	l.rotateIfNeededLocked()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(p)
}

// flushLocked writes the buffer to disk and resets it. Callers must
// hold l.mu.
func (l *Logger) flushLocked() {
	if len(l.buf) == 0 {
		return
	}

	l.rotateIfNeededLocked()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err == nil {
		_, _ = f.Write(l.buf)
		f.Close()
	}

	l.buf = l.buf[:0]
}

// Flush forces the current buffer to disk immediately.
func (l *Logger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushLocked()
}

// Run starts the background flush ticker, flushing once a second -- the
// same granularity the original flush thread used. Close is observed as
// soon as it is called, not on the next tick. Run blocks until Close is
// called; run it in its own goroutine.
func (l *Logger) Run() {
	defer close(l.done)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			l.Flush()
			return
		case <-ticker.C:
			l.Flush()
		}
	}
}

// Close signals Run to perform a final flush and exit, and waits for it
// to do so.
func (l *Logger) Close() {
	close(l.stop)
	<-l.done
}
