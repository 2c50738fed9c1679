// Package pool holds reusable copy buffers shared by all workers of a run.
package pool

import (
	"math/bits"
	"sync"
)

// MinBufferSize is the smallest buffer handed out by a Buffers pool.
const MinBufferSize = 4 * 1024

// Buffers is a pool of fixed-size byte slices. The size is rounded up to a
// power of two so buffers coming back from other pools can be rejected cheaply.
type Buffers struct {
	size int
	pool sync.Pool
}

// NewBuffers creates a pool whose buffers are at least size bytes long.
func NewBuffers(size int) *Buffers {
	size = roundUp(size)
	b := &Buffers{size: size}
	b.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return b
}

// Size returns the length of every buffer handed out by Get.
func (b *Buffers) Size() int { return b.size }

// Get retrieves a full-length buffer.
func (b *Buffers) Get() *[]byte {
	return b.pool.Get().(*[]byte)
}

// Put returns buf to the pool. Buffers of a foreign capacity are dropped.
func (b *Buffers) Put(buf *[]byte) {
	if buf == nil || cap(*buf) != b.size {
		return
	}
	*buf = (*buf)[:b.size]
	b.pool.Put(buf)
}

func roundUp(n int) int {
	if n <= MinBufferSize {
		return MinBufferSize
	}
	if isPowerOfTwo(n) {
		return n
	}
	return 1 << bits.Len(uint(n))
}

func isPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
