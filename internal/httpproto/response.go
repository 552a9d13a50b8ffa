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

package httpproto

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ServerHeader is sent on every response, matching the original wire
// identity exactly.
const ServerHeader = "ConcurrentHTTP/1.0"

// reasonPhrases covers every status this server ever emits. Anything
// outside this set falls back to "Unknown".
var reasonPhrases = map[int]string{
	200: "OK",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	500: "Internal Server Error",
	503: "Service Unavailable",
}

// ReasonPhrase returns the textual reason for status, or "Unknown" if
// this server never produces it.
func ReasonPhrase(status int) string {
	if r, ok := reasonPhrases[status]; ok {
		return r
	}
	return "Unknown"
}

// ErrorBody renders the literal "<h1>NNN Reason</h1>" body used for
// every non-2xx response.
func ErrorBody(status int) []byte {
	return []byte(fmt.Sprintf("<h1>%d %s</h1>", status, ReasonPhrase(status)))
}

// httpDateLayout mirrors strftime's "%a, %d %b %Y %H:%M:%S GMT" -- Go's
// time.RFC1123 renders the zone abbreviation from the *time.Location
// name, which is "UTC" rather than the wire format's literal "GMT".
const httpDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// WriteResponse writes a full status line, the fixed header set, and
// body (when non-nil) to w. now is injected so callers -- and tests --
// control the Date header instead of depending on wall-clock time
// inside this package. Content-Length always reflects the resource's
// real size, independent of whether body is actually written: a HEAD
// response passes the file's length with a nil body so the header
// still reports what a GET would have sent.
func WriteResponse(w io.Writer, now time.Time, status int, contentType string, contentLength int, body []byte) error {
	var b strings.Builder

	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, ReasonPhrase(status))
	fmt.Fprintf(&b, "Date: %s\r\n", now.UTC().Format(httpDateLayout))
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(&b, "Content-Length: %s\r\n", strconv.Itoa(contentLength))
	fmt.Fprintf(&b, "Server: %s\r\n", ServerHeader)
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	if len(body) == 0 {
		return nil
	}

	_, err := w.Write(body)
	return err
}

// WriteError writes the standard literal-HTML error response for
// status.
func WriteError(w io.Writer, now time.Time, status int) error {
	body := ErrorBody(status)
	return WriteResponse(w, now, status, "text/html", len(body), body)
}

// mimeOverrides fills in the handful of extensions the original server
// recognizes explicitly; anything else falls through to the system MIME
// database via mime.TypeByExtension, with application/octet-stream as
// the final fallback for unknown or unmapped extensions.
var mimeOverrides = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// DetectContentType returns the MIME type for path based on its
// extension alone; this server never sniffs file contents.
func DetectContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "application/octet-stream"
	}

	if ct, ok := mimeOverrides[ext]; ok {
		return ct
	}

	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}

	return "application/octet-stream"
}
