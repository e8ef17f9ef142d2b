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
	"container/list"
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/soapbridge/bridgeerrors"
)

// MaxTimeout is the longest any wait in this package blocks. Negative or
// larger timeouts are capped to it.
const MaxTimeout = time.Duration(math.MaxInt32) * time.Millisecond

// CapTimeout bounds timeout to [0, MaxTimeout]. Negative values mean "wait
// as long as allowed".
func CapTimeout(timeout time.Duration) time.Duration {
	if timeout < 0 || timeout > MaxTimeout {
		return MaxTimeout
	}
	return timeout
}

// Queue is a FIFO of pending calls connecting HTTP producers to accepting
// consumers. Receive is destructive, so a call is handed to at most one
// consumer.
//
// Queue is safe for concurrent use by any number of producers and
// consumers.
type Queue struct {
	mu    sync.Mutex
	items *list.List
	// notify is closed and replaced whenever an item is added or the queue
	// closes, waking every waiter.
	notify chan struct{}
	closed bool
}

// NewQueue builds an empty open queue.
func NewQueue() *Queue {
	return &Queue{
		items:  list.New(),
		notify: make(chan struct{}),
	}
}

// Len returns the number of calls waiting to be received.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Closed returns true once Close was called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Send enqueues call and blocks until it completes.
//
// If the client goes away while the call is still queued, the call is
// removed and fails with an aborted error. If timeout elapses first the
// call fails with a timeout error; a call still queued at that point is
// removed so no consumer picks it up later. Sending on a closed queue
// fails with a queue-closed error.
func (q *Queue) Send(call *Call, timeout time.Duration) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		err := bridgeerrors.QueueClosedErrorf("cannot send on a closed queue")
		call.Fail(err)
		return err
	}
	call.elem = q.items.PushBack(call)
	q.broadcastLocked()
	q.mu.Unlock()

	timeout = CapTimeout(timeout)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	clientGone := call.Context().Done()
	for {
		select {
		case <-call.Done():
			return call.Err()

		case <-clientGone:
			clientGone = nil
			if q.remove(call) {
				call.Fail(bridgeerrors.AbortedErrorf("client went away while the call was queued"))
				return call.Err()
			}
			// A consumer owns the call now; it observes the cancellation
			// when it replies.

		case <-timer.C:
			q.remove(call)
			call.Fail(bridgeerrors.TimeoutErrorf("call was not answered within %v", timeout))
			return call.Err()
		}
	}
}

// WaitForItem blocks until the queue holds a call, returning true, or until
// timeout elapses, returning false. It does not dequeue anything. It fails
// if the queue closes while empty or ctx ends.
func (q *Queue) WaitForItem(ctx context.Context, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(CapTimeout(timeout))
	defer timer.Stop()

	for {
		q.mu.Lock()
		if q.items.Len() > 0 {
			q.mu.Unlock()
			return true, nil
		}
		if q.closed {
			q.mu.Unlock()
			return false, bridgeerrors.QueueClosedErrorf("queue closed while waiting for an item")
		}
		notify := q.notify
		q.mu.Unlock()

		select {
		case <-notify:
		case <-timer.C:
			return false, nil
		case <-ctx.Done():
			return false, contextError(ctx, "waiting for an item")
		}
	}
}

// Receive dequeues the oldest call, waiting up to timeout for one to
// arrive. Calls whose clients already went away are failed and skipped.
func (q *Queue) Receive(ctx context.Context, timeout time.Duration) (*Call, error) {
	timeout = CapTimeout(timeout)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		call, abandoned, notify, err := q.tryReceive()
		for _, c := range abandoned {
			c.Fail(bridgeerrors.AbortedErrorf("client went away while the call was queued"))
		}
		if call != nil || err != nil {
			return call, err
		}

		select {
		case <-notify:
		case <-timer.C:
			return nil, bridgeerrors.TimeoutErrorf("no call received within %v", timeout)
		case <-ctx.Done():
			return nil, contextError(ctx, "receiving a call")
		}
	}
}

func (q *Queue) tryReceive() (call *Call, abandoned []*Call, notify <-chan struct{}, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() > 0 {
		c := q.items.Remove(q.items.Front()).(*Call)
		c.elem = nil
		if c.Context().Err() != nil {
			abandoned = append(abandoned, c)
			continue
		}
		return c, abandoned, nil, nil
	}
	if q.closed {
		return nil, abandoned, nil, bridgeerrors.QueueClosedErrorf("queue closed while receiving")
	}
	return nil, abandoned, q.notify, nil
}

// Close stops the queue from accepting calls and fails every call still
// queued. Calls already received are unaffected. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true

	pending := make([]*Call, 0, q.items.Len())
	for e := q.items.Front(); e != nil; e = e.Next() {
		c := e.Value.(*Call)
		c.elem = nil
		pending = append(pending, c)
	}
	q.items.Init()
	q.broadcastLocked()
	q.mu.Unlock()

	for _, c := range pending {
		c.Fail(bridgeerrors.QueueClosedErrorf("queue closed before the call was received"))
	}
}

// remove takes call out of the queue if it is still there.
func (q *Queue) remove(call *Call) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if call.elem == nil {
		return false
	}
	q.items.Remove(call.elem)
	call.elem = nil
	return true
}

func (q *Queue) broadcastLocked() {
	close(q.notify)
	q.notify = make(chan struct{})
}

func contextError(ctx context.Context, op string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return bridgeerrors.TimeoutErrorf("deadline exceeded while %s", op)
	}
	return bridgeerrors.AbortedErrorf("cancelled while %s", op)
}
