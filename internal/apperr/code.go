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

// Package apperr provides a coded, parent-chaining error type used for the
// process-fatal init path (config load, bind, listen, shared-memory setup).
// Request-path errors are not routed through this package: they stay plain
// HTTP status codes, contained at the request boundary.
package apperr

import "strconv"

// Code is a small numeric identifier for an initialization failure class.
type Code uint16

const (
	CodeUnknown Code = iota
	CodeConfigLoad
	CodeConfigValidate
	CodeListen
	CodeSharedMemory
	CodeWorkerSpawn
	CodeTransport
)

var codeText = map[Code]string{
	CodeUnknown:        "unknown error",
	CodeConfigLoad:     "configuration load failed",
	CodeConfigValidate: "configuration validation failed",
	CodeListen:         "listen socket setup failed",
	CodeSharedMemory:   "shared memory allocation failed",
	CodeWorkerSpawn:    "worker process spawn failed",
	CodeTransport:      "descriptor transport failure",
}

// String renders the code's human-readable category, falling back to its
// numeric form for codes with no registered text.
func (c Code) String() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return "error code " + strconv.Itoa(int(c))
}
