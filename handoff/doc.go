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

// Package handoff hands pending HTTP calls to the listeners that answer
// them.
//
// A Call is enqueued on a Queue by the HTTP side, which then blocks in
// Send until a listener receives the call and replies to it. Queues are
// shared through reference-counted Resources: every listener holds a Lease,
// and the Resource completes once the last Lease is released so that its
// owner can retire the queue and fail the calls still waiting in it.
//
//   lease, _ := resource.TryAcquire()
//   defer lease.Release()
//
//   queue, err := lease.Queue()
//   if err != nil {
//     return err
//   }
//   call, err := queue.Receive(ctx, timeout)
package handoff
