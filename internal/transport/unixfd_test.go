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

package transport_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/staticd/internal/transport"
)

var _ = Describe("Channel", func() {
	It("transfers an open descriptor so the receiver can read the same file", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "payload.txt")
		Expect(os.WriteFile(path, []byte("hi"), 0o644)).To(Succeed())

		sender, receiver, err := transport.NewPair()
		Expect(err).ToNot(HaveOccurred())
		defer sender.Close()
		defer receiver.Close()

		f, err := os.Open(path)
		Expect(err).ToNot(HaveOccurred())

		Expect(sender.Send(int(f.Fd()))).To(Succeed())
		Expect(f.Close()).To(Succeed())

		newFD, err := receiver.Recv()
		Expect(err).ToNot(HaveOccurred())

		got := os.NewFile(uintptr(newFD), "received")
		defer got.Close()

		buf := make([]byte, 2)
		n, err := got.Read(buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(buf[:n]).To(Equal([]byte("hi")))
	})

	It("preserves send order across the same channel", func() {
		dir := GinkgoT().TempDir()
		var paths []string
		for i, content := range []string{"a", "bb", "ccc"} {
			p := filepath.Join(dir, string(rune('a'+i)))
			Expect(os.WriteFile(p, []byte(content), 0o644)).To(Succeed())
			paths = append(paths, p)
		}

		sender, receiver, err := transport.NewPair()
		Expect(err).ToNot(HaveOccurred())
		defer sender.Close()
		defer receiver.Close()

		for _, p := range paths {
			f, ferr := os.Open(p)
			Expect(ferr).ToNot(HaveOccurred())
			Expect(sender.Send(int(f.Fd()))).To(Succeed())
			Expect(f.Close()).To(Succeed())
		}

		var contents []string
		for range paths {
			fd, rerr := receiver.Recv()
			Expect(rerr).ToNot(HaveOccurred())
			f := os.NewFile(uintptr(fd), "r")
			buf := make([]byte, 8)
			n, _ := f.Read(buf)
			contents = append(contents, string(buf[:n]))
			f.Close()
		}

		Expect(contents).To(Equal([]string{"a", "bb", "ccc"}))
	})

	It("reports end of stream once the peer closes", func() {
		sender, receiver, err := transport.NewPair()
		Expect(err).ToNot(HaveOccurred())
		defer receiver.Close()

		Expect(sender.Close()).To(Succeed())

		_, err = receiver.Recv()
		Expect(err).To(MatchError(transport.ErrEndOfStream))
	})
})
