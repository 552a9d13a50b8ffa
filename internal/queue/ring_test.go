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

package queue_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/staticd/internal/queue"
)

var _ = Describe("Ring", func() {
	It("returns descriptors in FIFO order", func() {
		r := queue.New(4)

		Expect(r.Enqueue(10)).To(Succeed())
		Expect(r.Enqueue(11)).To(Succeed())
		Expect(r.Enqueue(12)).To(Succeed())

		fd, err := r.Dequeue()
		Expect(err).ToNot(HaveOccurred())
		Expect(fd).To(Equal(10))

		fd, err = r.Dequeue()
		Expect(err).ToNot(HaveOccurred())
		Expect(fd).To(Equal(11))
	})

	It("rejects an enqueue once usable capacity is exhausted without blocking", func() {
		r := queue.New(2) // usable capacity 1

		Expect(r.Enqueue(1)).To(Succeed())
		Expect(r.Enqueue(2)).To(MatchError(queue.ErrFull))
		Expect(r.Len()).To(Equal(1))
	})

	It("blocks Dequeue until a matching Enqueue arrives", func() {
		r := queue.New(4)

		done := make(chan int, 1)
		go func() {
			fd, err := r.Dequeue()
			Expect(err).ToNot(HaveOccurred())
			done <- fd
		}()

		Consistently(done, 100*time.Millisecond).ShouldNot(Receive())

		Expect(r.Enqueue(42)).To(Succeed())

		Eventually(done).Should(Receive(Equal(42)))
	})

	It("returns Shutdown from Dequeue once terminated and drained, forever after", func() {
		r := queue.New(4)
		Expect(r.Enqueue(1)).To(Succeed())
		r.Terminate()

		fd, err := r.Dequeue()
		Expect(err).ToNot(HaveOccurred())
		Expect(fd).To(Equal(1))

		_, err = r.Dequeue()
		Expect(err).To(MatchError(queue.ErrShutdown))

		_, err = r.Dequeue()
		Expect(err).To(MatchError(queue.ErrShutdown))
	})

	It("wakes a blocked Dequeue immediately when Terminate is called on an empty queue", func() {
		r := queue.New(4)

		done := make(chan error, 1)
		go func() {
			_, err := r.Dequeue()
			done <- err
		}()

		Consistently(done, 50*time.Millisecond).ShouldNot(Receive())
		r.Terminate()
		Eventually(done).Should(Receive(MatchError(queue.ErrShutdown)))
	})

	It("reports its terminated state", func() {
		r := queue.New(2)
		Expect(r.Terminated()).To(BeFalse())
		r.Terminate()
		Expect(r.Terminated()).To(BeTrue())
	})
})
