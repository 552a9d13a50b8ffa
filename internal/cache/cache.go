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

// Package cache implements a content-addressed, size-bounded LRU for
// small static files: a fixed hash table of chained buckets locates an
// entry, and a doubly-linked recency list drives eviction once the
// configured byte budget is exceeded.
package cache

import (
	"sync"

	"golang.org/x/exp/slices"
)

// maxEntrySize rejects anything too large to be worth caching; larger
// files are read from disk again on every request.
const maxEntrySize = 1 << 20 // 1 MiB

const bucketCount = 4096

// node is both a hash-chain link and a recency-list link.
type node struct {
	key  string
	data []byte

	hnext *node // next node sharing this bucket

	prev, next *node // recency list; head = most recently used
}

// Cache is a concurrency-safe LRU keyed by request path. Zero value is
// not usable; construct with New.
type Cache struct {
	mu sync.RWMutex

	buckets [bucketCount]*node

	head, tail *node

	size int64
	max  int64
}

// New creates a Cache with the given total byte budget. A budget of 0
// disables caching: Put always reports false and Get always misses.
func New(maxBytes int64) *Cache {
	return &Cache{max: maxBytes}
}

// djb2 is the classic Bernstein hash, chosen for speed over
// cryptographic properties -- path strings are not adversarial input
// in the threat model this cache serves.
func djb2(s string) uint64 {
	var h uint64 = 5381
	for i := 0; i < len(s); i++ {
		h = ((h << 5) + h) + uint64(s[i])
	}
	return h
}

func bucketFor(key string) uint64 {
	return djb2(key) % bucketCount
}

func (c *Cache) findLocked(key string) *node {
	b := bucketFor(key)
	for n := c.buckets[b]; n != nil; n = n.hnext {
		if n.key == key {
			return n
		}
	}
	return nil
}

func (c *Cache) removeFromList(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (c *Cache) insertAtHead(n *node) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *Cache) removeFromBucket(n *node) {
	b := bucketFor(n.key)
	var prev *node
	for iter := c.buckets[b]; iter != nil; iter = iter.hnext {
		if iter == n {
			if prev != nil {
				prev.hnext = iter.hnext
			} else {
				c.buckets[b] = iter.hnext
			}
			return
		}
		prev = iter
	}
}

func (c *Cache) evictLocked() {
	for c.size > c.max && c.tail != nil {
		victim := c.tail
		c.removeFromBucket(victim)
		c.removeFromList(victim)
		c.size -= int64(len(victim.data))
	}
}

// Get returns a copy of the cached payload for key, promoting it to
// most-recently-used. The lookup starts under a shared read lock; on a
// hit it drops that lock, re-acquires exclusively, and re-locates the
// node before mutating the recency list, since another goroutine may
// have evicted or replaced it in between.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	n := c.findLocked(key)
	c.mu.RUnlock()

	if n == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n = c.findLocked(key)
	if n == nil {
		return nil, false
	}

	c.removeFromList(n)
	c.insertAtHead(n)

	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out, true
}

// Put stores a copy of data under key, evicting least-recently-used
// entries until the cache fits its byte budget. It reports false
// without storing anything for an empty payload, a payload over the
// 1 MiB per-entry threshold, or a zero-budget cache.
func (c *Cache) Put(key string, data []byte) bool {
	if len(data) == 0 || len(data) > maxEntrySize || c.max <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)

	if n := c.findLocked(key); n != nil {
		c.size -= int64(len(n.data))
		n.data = cp
		c.size += int64(len(cp))
		c.removeFromList(n)
		c.insertAtHead(n)
		c.evictLocked()
		return true
	}

	n := &node{key: key, data: cp}
	b := bucketFor(key)
	n.hnext = c.buckets[b]
	c.buckets[b] = n
	c.insertAtHead(n)
	c.size += int64(len(cp))
	c.evictLocked()
	return true
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for cur := c.head; cur != nil; cur = cur.next {
		n++
	}
	return n
}

// Size reports the total number of bytes currently cached.
func (c *Cache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// Keys returns a sorted snapshot of every cached path, for diagnostics
// and tests; sorting makes the output deterministic across runs with
// identical cache contents.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, bucketCount)
	for cur := c.head; cur != nil; cur = cur.next {
		keys = append(keys, cur.key)
	}
	slices.Sort(keys)
	return keys
}

// Destroy releases every cached entry. The Cache remains usable
// afterward, starting empty.
func (c *Cache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.buckets {
		c.buckets[i] = nil
	}
	c.head, c.tail = nil, nil
	c.size = 0
}
