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

package cache_test

import (
	"bytes"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/staticd/internal/cache"
)

var _ = Describe("Cache", func() {
	It("misses on an unknown key", func() {
		c := cache.New(1 << 20)
		_, ok := c.Get("/missing")
		Expect(ok).To(BeFalse())
	})

	It("stores and returns an independent copy of the payload", func() {
		c := cache.New(1 << 20)
		original := []byte("hello world")
		Expect(c.Put("/index.html", original)).To(BeTrue())

		got, ok := c.Get("/index.html")
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(original))

		original[0] = 'X'
		got2, _ := c.Get("/index.html")
		Expect(got2).To(Equal([]byte("hello world")))
	})

	It("rejects an empty payload", func() {
		c := cache.New(1 << 20)
		Expect(c.Put("/empty", nil)).To(BeFalse())
		_, ok := c.Get("/empty")
		Expect(ok).To(BeFalse())
	})

	It("rejects a payload larger than the per-entry threshold", func() {
		c := cache.New(64 << 20)
		big := bytes.Repeat([]byte("a"), (1<<20)+1)
		Expect(c.Put("/big", big)).To(BeFalse())
	})

	It("never stores anything when the budget is zero", func() {
		c := cache.New(0)
		Expect(c.Put("/a", []byte("x"))).To(BeFalse())
	})

	It("evicts the least recently used entry once the budget is exceeded", func() {
		c := cache.New(10)

		Expect(c.Put("/a", []byte("12345"))).To(BeTrue())
		Expect(c.Put("/b", []byte("12345"))).To(BeTrue())
		Expect(c.Size()).To(Equal(int64(10)))

		// touching /a makes /b the LRU victim
		_, _ = c.Get("/a")
		Expect(c.Put("/c", []byte("12345"))).To(BeTrue())

		_, ok := c.Get("/b")
		Expect(ok).To(BeFalse())

		_, ok = c.Get("/a")
		Expect(ok).To(BeTrue())
		_, ok = c.Get("/c")
		Expect(ok).To(BeTrue())
	})

	It("replaces an existing entry's data and re-accounts its size", func() {
		c := cache.New(1 << 20)
		Expect(c.Put("/a", []byte("short"))).To(BeTrue())
		Expect(c.Put("/a", []byte("a longer payload"))).To(BeTrue())

		got, ok := c.Get("/a")
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal([]byte("a longer payload")))
		Expect(c.Size()).To(Equal(int64(len("a longer payload"))))
	})

	It("handles many distinct keys across hash buckets without corruption", func() {
		c := cache.New(1 << 20)
		for i := 0; i < 500; i++ {
			key := fmt.Sprintf("/file-%d.html", i)
			Expect(c.Put(key, []byte(key))).To(BeTrue())
		}
		for i := 0; i < 500; i++ {
			key := fmt.Sprintf("/file-%d.html", i)
			got, ok := c.Get(key)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal([]byte(key)))
		}
	})

	It("returns a sorted snapshot of cached keys", func() {
		c := cache.New(1 << 20)
		Expect(c.Put("/b", []byte("x"))).To(BeTrue())
		Expect(c.Put("/a", []byte("x"))).To(BeTrue())
		Expect(c.Keys()).To(Equal([]string{"/a", "/b"}))
	})

	It("empties on Destroy but remains usable", func() {
		c := cache.New(1 << 20)
		Expect(c.Put("/a", []byte("x"))).To(BeTrue())
		c.Destroy()

		_, ok := c.Get("/a")
		Expect(ok).To(BeFalse())
		Expect(c.Len()).To(Equal(0))

		Expect(c.Put("/b", []byte("y"))).To(BeTrue())
		_, ok = c.Get("/b")
		Expect(ok).To(BeTrue())
	})
})
