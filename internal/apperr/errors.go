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

package apperr

import (
	"fmt"
	"strings"
)

// Error is a coded error that may chain any number of parent causes. A
// single top-level Error can therefore report, for example, every worker
// that failed to spawn without losing the per-worker detail.
type Error interface {
	error

	// Code returns the error's category.
	Code() Code

	// AddParent attaches one or more causes to this error.
	AddParent(parents ...error) Error

	// HasParent reports whether any cause has been attached.
	HasParent() bool

	// Parents returns the attached causes, in attachment order.
	Parents() []error
}

type appErr struct {
	code    Code
	msg     string
	parents []error
}

// New creates an Error of the given code with an optional formatted message.
func New(code Code, format string, args ...any) Error {
	msg := code.String()
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &appErr{code: code, msg: msg}
}

func (e *appErr) Code() Code { return e.code }

func (e *appErr) AddParent(parents ...error) Error {
	for _, p := range parents {
		if p != nil {
			e.parents = append(e.parents, p)
		}
	}
	return e
}

func (e *appErr) HasParent() bool { return len(e.parents) > 0 }

func (e *appErr) Parents() []error { return e.parents }

func (e *appErr) Error() string {
	if !e.HasParent() {
		return fmt.Sprintf("[%s] %s", e.code, e.msg)
	}

	parts := make([]string, 0, len(e.parents))
	for _, p := range e.parents {
		parts = append(parts, p.Error())
	}
	return fmt.Sprintf("[%s] %s: %s", e.code, e.msg, strings.Join(parts, "; "))
}

func (e *appErr) Unwrap() []error { return e.parents }
