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

package shm_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/staticd/internal/shm"
)

var _ = Describe("Stats", func() {
	It("starts every counter at zero", func() {
		s, err := shm.Create()
		Expect(err).ToNot(HaveOccurred())
		defer s.Close()

		snap := s.Snapshot()
		Expect(snap.TotalRequests).To(Equal(int64(0)))
		Expect(snap.ActiveConnections).To(Equal(int64(0)))
		Expect(snap.AverageResponseTime()).To(Equal(time.Duration(0)))
	})

	It("tracks the active connection gauge across open/close", func() {
		s, err := shm.Create()
		Expect(err).ToNot(HaveOccurred())
		defer s.Close()

		s.ConnectionOpened()
		s.ConnectionOpened()
		Expect(s.Snapshot().ActiveConnections).To(Equal(int64(2)))

		s.ConnectionClosed(200, 1024, 5*time.Millisecond)
		Expect(s.Snapshot().ActiveConnections).To(Equal(int64(1)))
	})

	It("buckets completed requests by status class", func() {
		s, err := shm.Create()
		Expect(err).ToNot(HaveOccurred())
		defer s.Close()

		s.ConnectionOpened()
		s.ConnectionClosed(200, 100, time.Millisecond)
		s.ConnectionOpened()
		s.ConnectionClosed(404, 50, time.Millisecond)
		s.ConnectionOpened()
		s.ConnectionClosed(500, 0, time.Millisecond)

		snap := s.Snapshot()
		Expect(snap.Status2xx).To(Equal(int64(1)))
		Expect(snap.Status4xx).To(Equal(int64(1)))
		Expect(snap.Status5xx).To(Equal(int64(1)))
		Expect(snap.TotalRequests).To(Equal(int64(3)))
		Expect(snap.BytesTransferred).To(Equal(int64(150)))
	})

	It("computes the mean response time across completed requests", func() {
		s, err := shm.Create()
		Expect(err).ToNot(HaveOccurred())
		defer s.Close()

		s.ConnectionOpened()
		s.ConnectionClosed(200, 10, 10*time.Millisecond)
		s.ConnectionOpened()
		s.ConnectionClosed(200, 10, 20*time.Millisecond)

		Expect(s.Snapshot().AverageResponseTime()).To(Equal(15 * time.Millisecond))
	})

	It("serializes concurrent updates without losing increments", func() {
		s, err := shm.Create()
		Expect(err).ToNot(HaveOccurred())
		defer s.Close()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.ConnectionOpened()
				s.ConnectionClosed(200, 1, time.Microsecond)
			}()
		}
		wg.Wait()

		Expect(s.Snapshot().TotalRequests).To(Equal(int64(50)))
		Expect(s.Snapshot().ActiveConnections).To(Equal(int64(0)))
	})

	It("shares the same region across an Open of the owning descriptor", func() {
		owner, err := shm.Create()
		Expect(err).ToNot(HaveOccurred())
		defer owner.Close()

		owner.ConnectionOpened()
		owner.ConnectionClosed(200, 42, time.Millisecond)

		reader, err := shm.Open(owner.Fd())
		Expect(err).ToNot(HaveOccurred())
		defer reader.Close()

		Expect(reader.Snapshot().BytesTransferred).To(Equal(int64(42)))
	})
})
