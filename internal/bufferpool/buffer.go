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

package bufferpool

import (
	"bytes"
	"io"

	"go.uber.org/soapbridge/bridgeerrors"
)

// Buffer is a pooled byte buffer used to read requests and write replies.
type Buffer struct {
	pool *Pool

	// version increments on every operation so that overlapping operations
	// from different goroutines are detected.
	version uint

	released bool

	buf *bytes.Buffer
}

func newBuffer(pool *Pool) *Buffer {
	return &Buffer{
		pool: pool,
		buf:  &bytes.Buffer{},
	}
}

func (b *Buffer) checkUseAfterFree() {
	if b.released || b.buf == nil {
		panic("use-after-free of pooled buffer")
	}
}

func (b *Buffer) preOp() uint {
	b.checkUseAfterFree()
	b.version++
	return b.version
}

func (b *Buffer) postOp(v uint) {
	b.checkUseAfterFree()
	if v != b.version || b.released {
		panic("concurrent use of pooled buffer")
	}
	b.version++
}

// Write implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	version := b.preOp()
	n, err := b.buf.Write(p)
	b.postOp(version)
	return n, err
}

// WriteString appends s to the buffer.
func (b *Buffer) WriteString(s string) (int, error) {
	version := b.preOp()
	n, err := b.buf.WriteString(s)
	b.postOp(version)
	return n, err
}

// WriteTo implements io.WriterTo.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	version := b.preOp()
	n, err := b.buf.WriteTo(w)
	b.postOp(version)
	return n, err
}

// ReadFromLimit reads r until EOF. It fails with a quota error if r holds
// more than limit bytes. A non-positive limit reads without a bound.
func (b *Buffer) ReadFromLimit(r io.Reader, limit int64) (int64, error) {
	version := b.preOp()
	defer b.postOp(version)

	if limit <= 0 {
		return b.buf.ReadFrom(r)
	}

	// Read one byte past the limit to tell "exactly limit" from "more".
	n, err := b.buf.ReadFrom(io.LimitReader(r, limit+1))
	if err != nil {
		return n, err
	}
	if n > limit {
		return n, bridgeerrors.QuotaExceededErrorf(
			"message size exceeds the maximum of %d bytes", limit)
	}
	return n, nil
}

// Bytes returns the buffered data. The slice is only valid until the buffer
// is released.
func (b *Buffer) Bytes() []byte {
	return b.buf.Bytes()
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	version := b.preOp()
	n := b.buf.Len()
	b.postOp(version)
	return n
}

// Reset empties the buffer but keeps its capacity.
func (b *Buffer) Reset() {
	version := b.preOp()
	b.buf.Reset()
	b.postOp(version)
}

// Release returns the buffer to its pool. The buffer must not be used
// afterwards.
func (b *Buffer) Release() {
	b.postOp(b.preOp())

	if b.pool.detectUseAfterFree {
		b.releaseDetectUseAfterFree()
		return
	}

	b.Reset()
	// Mark released after Reset so that Reset does not panic.
	b.released = true
	b.pool.release(b)
}

func (b *Buffer) reuse() {
	b.released = false
}

func (b *Buffer) capacity() int {
	return b.buf.Cap()
}

func (b *Buffer) releaseDetectUseAfterFree() {
	// Scribble over the data so lingering readers see garbage, and do it
	// again from a goroutine so the race detector notices them.
	overwriteData(b.Bytes())
	go overwriteData(b.Bytes())

	b.released = true
	b.buf = nil
}

func overwriteData(bs []byte) {
	for i := range bs {
		bs[i] = byte(i)
	}
}
