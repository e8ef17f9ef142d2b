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
	"errors"
	"io"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/soapbridge/bridgeerrors"
)

func TestBufferWrite(t *testing.T) {
	runTestWithBuffer(t, func(t *testing.T, buf *Buffer) {
		buf.Write([]byte("hello "))
		buf.WriteString("world")
		assert.Equal(t, "hello world", string(buf.Bytes()), "Unexpected written bytes")
	})
}

func TestBufferWriteTo(t *testing.T) {
	runTestWithBuffer(t, func(t *testing.T, buf *Buffer) {
		buf.WriteString("hello world")

		sink := &bytes.Buffer{}
		buf.WriteTo(sink)
		assert.Equal(t, "hello world", sink.String(), "Unexpected written bytes")
	})
}

func TestBufferReadFromLimit(t *testing.T) {
	tests := []struct {
		msg     string
		give    string
		limit   int64
		wantErr bool
	}{
		{msg: "unbounded", give: "hello world", limit: 0},
		{msg: "under limit", give: "hello", limit: 10},
		{msg: "exactly limit", give: "hello", limit: 5},
		{msg: "over limit", give: "hello world", limit: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			runTestWithBuffer(t, func(t *testing.T, buf *Buffer) {
				_, err := buf.ReadFromLimit(strings.NewReader(tt.give), tt.limit)
				if tt.wantErr {
					require.Error(t, err)
					assert.True(t, errors.Is(err, bridgeerrors.ErrQuotaExceeded))
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.give, string(buf.Bytes()))
			})
		})
	}
}

func TestBufferPrePostOp(t *testing.T) {
	runTest(t, func(t *testing.T, pool *Pool) {
		buf := pool.Get()
		defer buf.Release()

		v := buf.preOp()
		assert.NotPanics(t, func() {
			buf.postOp(v)
		})

		// Doing the postOp twice will panic
		assert.Panics(t, func() {
			buf.postOp(v)
		})
	})
}

func TestBufferReuse(t *testing.T) {
	runTest(t, func(t *testing.T, pool *Pool) {
		runConcurrently(t, func() {
			buf := pool.Get()
			assert.Equal(t, 0, len(buf.Bytes()), "Expected zero buffer size")

			io.WriteString(buf, "test")
			buf.Release()
		})
	})
}

func TestBufferUseAfterRelease(t *testing.T) {
	runTest(t, func(t *testing.T, pool *Pool) {
		buf := pool.Get()
		buf.Release()

		assert.Panics(t, func() {
			io.WriteString(buf, "test")
		})
	})
}

func TestBufferReleaseTwice(t *testing.T) {
	runTest(t, func(t *testing.T, pool *Pool) {
		buf := pool.Get()

		buf.Release()
		assert.Panics(t, func() {
			buf.Release()
		})
	})
}

func TestPoolRetainsBoundedCapacity(t *testing.T) {
	pool := NewPool(MaxPoolSize(1024), MaxBufferSize(256))
	pool.detectUseAfterFree = false

	big := pool.Get()
	big.Write(randBytes(1024))
	big.Release()
	assert.Zero(t, pool.Retained(), "buffers over MaxBufferSize must be dropped")

	var bufs []*Buffer
	for i := 0; i < 10; i++ {
		buf := pool.Get()
		buf.Write(randBytes(200))
		bufs = append(bufs, buf)
	}
	for _, buf := range bufs {
		buf.Release()
	}
	assert.True(t, pool.Retained() <= 1024, "retained %d bytes", pool.Retained())
	assert.True(t, pool.Retained() > 0, "expected some buffers to be kept")

	reused := pool.Get()
	assert.Zero(t, reused.Len(), "Expected truncated buffer")
	assert.True(t, pool.Retained() < 1024)
	reused.Release()
}

func TestPoolWithoutRetention(t *testing.T) {
	pool := NewPool(MaxPoolSize(0))
	buf := pool.Get()
	buf.WriteString("hello")
	buf.Release()
	assert.Zero(t, pool.Retained())
}

func runTestWithBuffer(t *testing.T, f func(t *testing.T, buf *Buffer)) {
	runTest(t, func(t *testing.T, pool *Pool) {
		buf := pool.Get()
		defer buf.Release()

		f(t, buf)
	})
}

func runTest(t *testing.T, f func(t *testing.T, pool *Pool)) {
	const numIterations = 10

	t.Run("no use-after-free detection", func(t *testing.T) {
		for i := 0; i < numIterations; i++ {
			pool := NewPool()
			pool.detectUseAfterFree = false
			f(t, pool)
		}
	})

	t.Run("with use-after-free detection", func(t *testing.T) {
		for i := 0; i < numIterations; i++ {
			f(t, NewPool(DetectUseAfterFreeForTests()))
		}
	})
}

func runConcurrently(t *testing.T, f func()) {
	const numGoroutines = 5

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := 0; j < 10; j++ {
				f()
			}
		}()
	}

	wg.Wait()
}

func randBytes(n int) []byte {
	buf := make([]byte, n)
	rand.Read(buf)
	return buf
}
