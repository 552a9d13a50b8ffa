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

// Package httpproto implements the narrow slice of HTTP/1.1 this server
// speaks: parsing just the request line of an inbound byte buffer, and
// writing a response with exactly the headers the wire format requires.
// There is deliberately no keep-alive, no chunked transfer, and no
// header parsing beyond the first line -- every response closes the
// connection.
package httpproto

import (
	"bytes"
	"errors"
	"strings"
)

// ErrMalformed is returned by ParseRequestLine when the buffer does not
// contain a complete, well-formed request line.
var ErrMalformed = errors.New("httpproto: malformed request line")

// Request holds the three tokens of an HTTP request line. No other
// headers are parsed; this server does not need them.
type Request struct {
	Method  string
	Path    string
	Version string
}

// ParseRequestLine extracts the method, path and version from the first
// line of buf, terminated by CRLF. Anything after the first CRLF is
// ignored. It fails if no CRLF is present or the line does not split
// into exactly three whitespace-separated tokens.
func ParseRequestLine(buf []byte) (Request, error) {
	idx := bytes.Index(buf, []byte("\r\n"))
	if idx < 0 {
		return Request{}, ErrMalformed
	}

	fields := strings.Fields(string(buf[:idx]))
	if len(fields) != 3 {
		return Request{}, ErrMalformed
	}

	return Request{Method: fields[0], Path: fields[1], Version: fields[2]}, nil
}

// IsPathTraversal reports whether path contains ".." anywhere, whether
// or not it forms a whole segment. The check is a plain substring test against
// the raw, undecoded path, matching the server's conservative rejection
// of anything that could climb out of the document root.
func IsPathTraversal(path string) bool {
	return strings.Contains(path, "..")
}
