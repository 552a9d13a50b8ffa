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

// Package worker implements one worker process's runtime: a receive
// loop that pulls accepted connections off its transport channel into a
// local bounded queue, and a fixed pool of handler goroutines that drain
// that queue, running each connection through the
// read/parse/validate/resolve/load/respond/close lifecycle.
package worker

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nabbar/staticd/internal/accesslog"
	"github.com/nabbar/staticd/internal/cache"
	"github.com/nabbar/staticd/internal/httpproto"
	"github.com/nabbar/staticd/internal/logging"
	"github.com/nabbar/staticd/internal/queue"
	"github.com/nabbar/staticd/internal/shm"
	"github.com/nabbar/staticd/internal/transport"
)

// Config bundles everything a Worker needs to run independent of how it
// was spawned.
type Config struct {
	DocumentRoot string
	Threads      int
	QueueSize    int
	Timeout      time.Duration
	CacheBytes   int64
}

// Worker owns one transport channel, one local queue and a pool of
// handler goroutines. ID is a correlation identifier attached as
// worker_id to every line of this worker's structured log; access-log
// entries do not carry it.
type Worker struct {
	ID uuid.UUID

	cfg Config
	ch  *transport.Channel
	q   *queue.Ring
	c   *cache.Cache
	st  *shm.Stats
	al  *accesslog.Logger
	log logging.Logger
}

// New constructs a Worker. ch is the receiving end of the acceptor
// socketpair, st is the shared statistics region, al is the access
// logger and log is this worker's structured logger.
func New(cfg Config, ch *transport.Channel, st *shm.Stats, al *accesslog.Logger, log logging.Logger) *Worker {
	id := uuid.New()
	return &Worker{
		ID:  id,
		cfg: cfg,
		ch:  ch,
		q:   queue.New(cfg.QueueSize),
		c:   cache.New(cfg.CacheBytes),
		st:  st,
		al:  al,
		log: log.WithField("worker_id", id.String()),
	}
}

// Run starts the handler pool and blocks in the receive loop until the
// channel reports end of stream, at which point it terminates the
// queue, waits for every handler to drain it, and returns.
func (w *Worker) Run() {
	w.log.Info("worker started")

	done := make(chan struct{})
	for i := 0; i < w.cfg.Threads; i++ {
		go func() {
			w.handleLoop()
			done <- struct{}{}
		}()
	}

	w.receiveLoop()

	for i := 0; i < w.cfg.Threads; i++ {
		<-done
	}

	w.c.Destroy()
	w.log.Info("worker shut down")
}

// receiveLoop pulls descriptors off the transport channel and pushes
// them into the local queue. A full queue gets an immediate 503 and the
// connection is closed without ever touching a handler goroutine --
// back-pressure never blocks the acceptor-facing channel.
func (w *Worker) receiveLoop() {
	for {
		fd, err := w.ch.Recv()
		if err != nil {
			w.q.Terminate()
			return
		}

		if err := w.q.Enqueue(fd); err != nil {
			w.rejectFull(fd)
		}
	}
}

func (w *Worker) rejectFull(fd int) {
	conn := os.NewFile(uintptr(fd), "client")
	defer conn.Close()

	_ = httpproto.WriteError(conn, time.Now(), 503)
}

func (w *Worker) handleLoop() {
	for {
		fd, err := w.q.Dequeue()
		if err != nil {
			return
		}
		w.handleConnection(fd)
	}
}

const readBufferSize = 2048

// handleConnection runs one accepted connection through its full
// lifecycle and always closes fd before returning. The raw descriptor
// is wrapped as a net.Conn (rather than used as a bare *os.File) purely
// to get SetDeadline and RemoteAddr; net.FileConn dup's the descriptor,
// so the original os.File is closed independently.
func (w *Worker) handleConnection(fd int) {
	start := time.Now()
	raw := os.NewFile(uintptr(fd), "client")
	defer raw.Close()

	conn, err := net.FileConn(raw)
	if err != nil {
		return
	}
	defer conn.Close()

	if w.cfg.Timeout > 0 {
		_ = conn.SetDeadline(start.Add(w.cfg.Timeout))
	}

	w.st.ConnectionOpened()

	status, bytesSent, method, path := w.serve(conn)

	w.st.ConnectionClosed(status, bytesSent, time.Since(start))

	clientAddr := "-"
	if conn.RemoteAddr() != nil {
		clientAddr = conn.RemoteAddr().String()
	}

	w.al.Log(accesslog.Entry{
		ClientAddr: clientAddr,
		Method:     method,
		Path:       path,
		Status:     status,
		Bytes:      bytesSent,
		When:       start,
	})
}

// serve implements the READ -> PARSE -> VALIDATE_METHOD ->
// VALIDATE_PATH -> RESOLVE -> LOAD -> RESPOND lifecycle and returns the
// final status code, bytes written, and the request's method/path for
// statistics and access logging. Each call runs entirely on its own
// goroutine's stack, so these are plain return values rather than
// fields on Worker shared across handler goroutines.
func (w *Worker) serve(f io.ReadWriter) (status int, bytesWritten int64, method, path string) {
	buf := make([]byte, readBufferSize)
	n, err := f.Read(buf)
	if err != nil || n == 0 {
		status, bytesWritten = writeErrorCounting(f, 400)
		return status, bytesWritten, "-", "-"
	}

	req, err := httpproto.ParseRequestLine(buf[:n])
	if err != nil {
		status, bytesWritten = writeErrorCounting(f, 400)
		return status, bytesWritten, "-", "-"
	}

	method, path = req.Method, req.Path

	isHead := method == "HEAD"
	if method != "GET" && !isHead {
		status, bytesWritten = writeErrorCounting(f, 405)
		return status, bytesWritten, method, path
	}

	if httpproto.IsPathTraversal(path) {
		status, bytesWritten = writeErrorCounting(f, 403)
		return status, bytesWritten, method, path
	}

	fullPath := w.resolvePath(path)

	if cached, ok := w.c.Get(fullPath); ok {
		status, bytesWritten = w.respond(f, 200, fullPath, cached, isHead)
		return status, bytesWritten, method, path
	}

	info, err := os.Stat(fullPath)
	if err == nil && info.IsDir() {
		fullPath = filepath.Join(fullPath, "index.html")
		info, err = os.Stat(fullPath)
	}
	if err != nil {
		status, bytesWritten = writeErrorCounting(f, 404)
		return status, bytesWritten, method, path
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		status, bytesWritten = writeErrorCounting(f, 500)
		return status, bytesWritten, method, path
	}

	w.c.Put(fullPath, data)

	status, bytesWritten = w.respond(f, 200, fullPath, data, isHead)
	return status, bytesWritten, method, path
}

func (w *Worker) resolvePath(reqPath string) string {
	return filepath.Join(w.cfg.DocumentRoot, filepath.FromSlash(strings.TrimPrefix(reqPath, "/")))
}

func (w *Worker) respond(f io.ReadWriter, status int, path string, data []byte, isHead bool) (int, int64) {
	body := data
	if isHead {
		body = nil
	}

	if err := httpproto.WriteResponse(f, time.Now(), status, httpproto.DetectContentType(path), len(data), body); err != nil {
		return status, 0
	}
	return status, int64(len(body))
}

func writeErrorCounting(f io.Writer, status int) (int, int64) {
	body := httpproto.ErrorBody(status)
	if err := httpproto.WriteError(f, time.Now(), status); err != nil {
		return status, 0
	}
	return status, int64(len(body))
}
