// Copyright (c) 2025 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package bufferpool implements a bounded pool of byte buffers for reading
// requests and writing replies.
//
// The pool never holds on to more than MaxPoolSize bytes of idle buffers,
// and buffers that grew past MaxBufferSize are dropped on release instead of
// being kept around.
package bufferpool

import (
	"flag"

	"go.uber.org/atomic"
)

// Defaults used when an option is left at zero.
const (
	DefaultMaxPoolSize   = 512 * 1024
	DefaultMaxBufferSize = 64 * 1024
)

var _detectUseAfterFree bool

func init() {
	// Unit tests run with -test.v registered; enable use-after-free
	// detection there.
	if flag.Lookup("test.v") != nil {
		_detectUseAfterFree = true
	}
}

// Option configures a Pool.
type Option func(*Pool)

// MaxPoolSize bounds the total capacity of idle buffers held by the pool.
func MaxPoolSize(n int) Option {
	return func(p *Pool) {
		p.maxPoolSize = n
	}
}

// MaxBufferSize is the largest buffer capacity the pool will keep.
func MaxBufferSize(n int) Option {
	return func(p *Pool) {
		p.maxBufferSize = n
	}
}

// DetectUseAfterFreeForTests makes released buffers unusable so that
// lingering references panic.
func DetectUseAfterFreeForTests() Option {
	return func(p *Pool) {
		p.detectUseAfterFree = true
	}
}

// Pool is a bounded free list of buffers. It is safe for concurrent use.
type Pool struct {
	maxPoolSize        int
	maxBufferSize      int
	detectUseAfterFree bool

	free     chan *Buffer
	retained atomic.Int64
}

// NewPool builds a pool.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		maxPoolSize:        DefaultMaxPoolSize,
		maxBufferSize:      DefaultMaxBufferSize,
		detectUseAfterFree: _detectUseAfterFree,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxPoolSize < 0 {
		p.maxPoolSize = 0
	}
	if p.maxBufferSize <= 0 {
		p.maxBufferSize = DefaultMaxBufferSize
	}

	slots := 1
	if p.maxPoolSize > 0 {
		slots = p.maxPoolSize/p.maxBufferSize + 1
	}
	p.free = make(chan *Buffer, slots)
	return p
}

// Get returns an empty buffer, reusing an idle one if possible.
func (p *Pool) Get() *Buffer {
	select {
	case buf := <-p.free:
		p.retained.Sub(int64(buf.capacity()))
		buf.reuse()
		return buf
	default:
		return newBuffer(p)
	}
}

// Retained reports the capacity of idle buffers currently held.
func (p *Pool) Retained() int64 {
	return p.retained.Load()
}

func (p *Pool) release(buf *Buffer) {
	size := int64(buf.capacity())
	if buf.capacity() > p.maxBufferSize {
		return
	}
	if p.retained.Add(size) > int64(p.maxPoolSize) {
		p.retained.Sub(size)
		return
	}
	select {
	case p.free <- buf:
	default:
		p.retained.Sub(size)
	}
}
