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

package handoff

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/soapbridge/bridgeerrors"
)

func TestLeaseLifecycle(t *testing.T) {
	q := NewQueue()
	var fired []*Resource
	r := NewResource(q, func(r *Resource) { fired = append(fired, r) })
	assert.Equal(t, q, r.Queue())

	first, ok := r.TryAcquire()
	require.True(t, ok)
	second, ok := r.TryAcquire()
	require.True(t, ok)
	assert.Equal(t, 2, r.Outstanding())
	assert.Equal(t, r, first.Resource())

	got, err := first.Queue()
	require.NoError(t, err)
	assert.Equal(t, q, got)

	first.Release()
	first.Release()
	assert.True(t, first.Released())
	assert.Equal(t, 1, r.Outstanding(), "double release must be a no-op")
	assert.Empty(t, fired)

	_, err = first.Queue()
	assert.True(t, errors.Is(err, bridgeerrors.ErrReleased), "got %v", err)

	second.Release()
	assert.Equal(t, []*Resource{r}, fired)
	assert.True(t, r.Completed())

	_, ok = r.TryAcquire()
	assert.False(t, ok, "a completed resource cannot be acquired")
	assert.Len(t, fired, 1)
}

func TestResourceWithoutCallback(t *testing.T) {
	r := NewResource(NewQueue(), nil)
	lease, ok := r.TryAcquire()
	require.True(t, ok)
	assert.NotPanics(t, lease.Release)
	assert.True(t, r.Completed())
}

func TestResourceCompletesOnceUnderConcurrency(t *testing.T) {
	var fired atomic.Int32
	r := NewResource(NewQueue(), func(*Resource) { fired.Inc() })

	// Hold one lease so the resource cannot complete while workers churn.
	anchor, ok := r.TryAcquire()
	require.True(t, ok)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				lease, ok := r.TryAcquire()
				if !assert.True(t, ok) {
					return
				}
				if rand.Intn(2) == 0 {
					lease.Release()
				}
				lease.Release()
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, fired.Load(), "must not complete while a lease is outstanding")
	assert.Equal(t, 1, r.Outstanding())

	anchor.Release()
	assert.Equal(t, int32(1), fired.Load())
	assert.Zero(t, r.Outstanding())
}
