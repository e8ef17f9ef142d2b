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
	"net/http"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/soapbridge"
	"go.uber.org/soapbridge/bridgeerrors"
)

// Call is a pending HTTP invocation waiting for a consumer to reply to it.
//
// A Call completes exactly once. Completion either writes a reply through
// Reply or records a failure through Fail; whichever happens first wins and
// later attempts are no-ops.
type Call struct {
	tc soapbridge.TransportContext

	// mu serializes completion with an in-flight reply write so that a
	// failure never interleaves with a half-written response.
	mu        sync.Mutex
	completed atomic.Bool
	err       error
	done      chan struct{}

	// elem is the call's position in the queue holding it, guarded by that
	// queue's lock.
	elem *list.Element
}

// NewCall wraps a transport context into a pending call.
func NewCall(tc soapbridge.TransportContext) *Call {
	return &Call{
		tc:   tc,
		done: make(chan struct{}),
	}
}

// Transport returns the transport context of the call.
func (c *Call) Transport() soapbridge.TransportContext {
	return c.tc
}

// Context is cancelled when the client goes away.
func (c *Call) Context() context.Context {
	if ctx := c.tc.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Done is closed once the call has completed.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Completed returns true if the call has completed.
func (c *Call) Completed() bool {
	return c.completed.Load()
}

// Err returns the failure the call completed with. It is nil for calls that
// have not completed or that completed with a reply.
func (c *Call) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Fail completes the call with err. It returns false if the call had
// already completed.
func (c *Call) Fail(err error) bool {
	if err == nil {
		err = bridgeerrors.AbortedErrorf("call failed without a reason")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completeLocked(err)
}

// Reply writes a response for the call and completes it with the result of
// write. If the call already completed, nothing is written and the earlier
// outcome is returned as an error.
func (c *Call) Reply(write func(http.ResponseWriter) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.completed.Load() {
		if c.err != nil {
			return c.err
		}
		return bridgeerrors.AbortedErrorf("call already replied to")
	}
	if err := c.Context().Err(); err != nil {
		err = bridgeerrors.AbortedErrorf("client went away before the reply: %v", err)
		c.completeLocked(err)
		return err
	}

	err := write(c.tc.Response())
	c.completeLocked(err)
	return err
}

func (c *Call) completeLocked(err error) bool {
	if !c.completed.CAS(false, true) {
		return false
	}
	c.err = err
	close(c.done)
	return true
}
