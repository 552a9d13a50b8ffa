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

// Package transport moves one open file descriptor at a time across a
// local Unix-domain socketpair, using SCM_RIGHTS ancillary data. This is
// the acceptor-worker channel of the design: the acceptor end transfers
// every accepted client connection to its paired worker, and the
// channel's closure is the sole shutdown signal a worker observes.
package transport

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrEndOfStream is returned by Recv once the peer has closed its end of
// the channel and no further messages are pending. Workers treat this as
// the shutdown trigger.
var ErrEndOfStream = errors.New("transport: end of stream")

// Error wraps a lower-level transport failure (anything other than a
// clean peer close).
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("transport: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Channel is one end of a bidirectional descriptor-passing pipe.
type Channel struct {
	f *os.File
}

// NewPair creates a connected Unix-domain socketpair and wraps both ends
// as Channels. The caller decides which end stays in this process and
// which is handed to a child across exec (via os.File.Fd() -- the
// *os.File keeps the descriptor open and CLOEXEC-free so it survives
// exec.Cmd.ExtraFiles).
func NewPair() (local *Channel, remote *Channel, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, &Error{Op: "socketpair", Err: err}
	}

	return FromFD(fds[0]), FromFD(fds[1]), nil
}

// FromFD wraps a raw, already-open socket descriptor (e.g. one inherited
// at a fixed fd number via exec.Cmd.ExtraFiles) as a Channel.
func FromFD(fd int) *Channel {
	return &Channel{f: os.NewFile(uintptr(fd), "staticd-channel")}
}

// File exposes the underlying *os.File so the acceptor can list it in
// exec.Cmd.ExtraFiles when spawning a worker.
func (c *Channel) File() *os.File { return c.f }

// Close releases this end of the channel.
func (c *Channel) Close() error { return c.f.Close() }

// Send transfers fd to the peer. It writes exactly one ordinary byte
// alongside the SCM_RIGHTS control message -- the kernel requires
// ancillary data to ride along with at least one byte of regular payload.
// The caller retains ownership of fd; per the acceptor-worker protocol it
// is the caller's responsibility to close its own copy immediately after
// Send returns successfully, to avoid holding the descriptor open twice.
func (c *Channel) Send(fd int) error {
	rights := unix.UnixRights(fd)
	if err := unix.Sendmsg(int(c.f.Fd()), []byte{0}, rights, nil, 0); err != nil {
		return &Error{Op: "sendmsg", Err: err}
	}
	return nil
}

// Recv blocks until a descriptor arrives, returning the newly materialized
// local descriptor. It returns ErrEndOfStream once the peer has closed its
// end, and a *Error for any other failure.
func (c *Channel) Recv() (int, error) {
	oob := make([]byte, unix.CmsgSpace(4))
	buf := make([]byte, 1)

	n, oobn, _, _, err := unix.Recvmsg(int(c.f.Fd()), buf, oob, 0)
	if err != nil {
		return -1, &Error{Op: "recvmsg", Err: err}
	}
	if n == 0 && oobn == 0 {
		return -1, ErrEndOfStream
	}

	msgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return -1, &Error{Op: "parse control message", Err: err}
	}
	if len(msgs) == 0 {
		return -1, &Error{Op: "parse control message", Err: errors.New("no ancillary data in message")}
	}

	fds, err := unix.ParseUnixRights(&msgs[0])
	if err != nil {
		return -1, &Error{Op: "parse unix rights", Err: err}
	}
	if len(fds) != 1 {
		return -1, &Error{Op: "parse unix rights", Err: fmt.Errorf("expected exactly one descriptor, got %d", len(fds))}
	}

	return fds[0], nil
}
