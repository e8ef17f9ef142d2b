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
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/soapbridge/bridgeerrors"
)

// Resource reference-counts the holders of a queue. When the last lease is
// released the resource completes: it can no longer be acquired and its
// completion callback runs once.
type Resource struct {
	queue      *Queue
	onComplete func(*Resource)

	mu        sync.Mutex
	count     int
	completed bool
}

// NewResource wraps queue. onComplete, if non-nil, runs exactly once after
// the last outstanding lease is released.
func NewResource(queue *Queue, onComplete func(*Resource)) *Resource {
	return &Resource{queue: queue, onComplete: onComplete}
}

// Queue returns the underlying queue.
func (r *Resource) Queue() *Queue {
	return r.queue
}

// TryAcquire returns a new lease on the resource. It fails once the
// resource has completed.
func (r *Resource) TryAcquire() (*Lease, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.completed {
		return nil, false
	}
	r.count++
	return &Lease{resource: r}, true
}

// Outstanding returns the number of unreleased leases.
func (r *Resource) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Completed returns true once the last lease was released.
func (r *Resource) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

func (r *Resource) release() {
	r.mu.Lock()
	r.count--
	if r.count < 0 {
		r.mu.Unlock()
		panic("handoff: resource released more times than acquired")
	}
	fire := r.count == 0 && !r.completed
	if fire {
		r.completed = true
	}
	r.mu.Unlock()

	if fire && r.onComplete != nil {
		r.onComplete(r)
	}
}

// Lease is a counted handle on a Resource. Every lease must be released
// exactly once; releasing again is a no-op.
type Lease struct {
	resource *Resource
	released atomic.Bool
}

// Queue returns the leased queue. It fails after the lease was released.
func (l *Lease) Queue() (*Queue, error) {
	if l.released.Load() {
		return nil, bridgeerrors.ReleasedErrorf("queue accessed through a released lease")
	}
	return l.resource.queue, nil
}

// Resource returns the resource the lease was taken on.
func (l *Lease) Resource() *Resource {
	return l.resource
}

// Released returns true once Release was called.
func (l *Lease) Released() bool {
	return l.released.Load()
}

// Release gives the lease back.
func (l *Lease) Release() {
	if l.released.CAS(false, true) {
		l.resource.release()
	}
}
