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
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/soapbridge/bridgeerrors"
	"go.uber.org/soapbridge/internal/testtime"
	"go.uber.org/soapbridge/soapbridgetest"
)

func newCall(opts ...soapbridgetest.Option) *Call {
	return NewCall(soapbridgetest.NewTransportContext(opts...))
}

// sendAsync starts a Send and returns a channel that yields its result.
func sendAsync(q *Queue, call *Call, timeout time.Duration) <-chan error {
	result := make(chan error, 1)
	go func() {
		result <- q.Send(call, timeout)
	}()
	return result
}

func waitForLen(t *testing.T, q *Queue, want int) {
	deadline := time.Now().Add(testtime.Second)
	for time.Now().Before(deadline) {
		if q.Len() == want {
			return
		}
		time.Sleep(testtime.Millisecond)
	}
	t.Fatalf("queue length did not reach %d, got %d", want, q.Len())
}

func TestSendReceiveReply(t *testing.T) {
	q := NewQueue()
	call := newCall(soapbridgetest.WithBody("hello"))
	result := sendAsync(q, call, testtime.Second)

	got, err := q.Receive(context.Background(), testtime.Second)
	require.NoError(t, err)
	require.Equal(t, call, got)
	assert.Zero(t, q.Len())

	require.NoError(t, got.Reply(func(w http.ResponseWriter) error {
		_, err := w.Write([]byte("world"))
		return err
	}))
	require.NoError(t, <-result)

	tc := call.Transport().(*soapbridgetest.TransportContext)
	assert.Equal(t, "world", tc.ResponseBody())
}

func TestReplyFailureReachesSender(t *testing.T) {
	q := NewQueue()
	call := newCall()
	result := sendAsync(q, call, testtime.Second)

	got, err := q.Receive(context.Background(), testtime.Second)
	require.NoError(t, err)

	writeErr := errors.New("broken pipe")
	assert.Equal(t, writeErr, got.Reply(func(http.ResponseWriter) error { return writeErr }))
	assert.Equal(t, writeErr, <-result)
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()

	var calls []*Call
	for i := 0; i < 5; i++ {
		call := newCall()
		calls = append(calls, call)
		sendAsync(q, call, testtime.Second)
		waitForLen(t, q, i+1)
	}

	for i, want := range calls {
		got, err := q.Receive(context.Background(), testtime.Second)
		require.NoError(t, err)
		assert.True(t, want == got, "call %d received out of order", i)
		got.Fail(bridgeerrors.AbortedErrorf("done"))
	}
}

func TestQueueAtMostOnceDelivery(t *testing.T) {
	const (
		producers = 10
		perProd   = 20
		consumers = 5
	)

	q := NewQueue()
	var producerWG sync.WaitGroup
	for i := 0; i < producers; i++ {
		producerWG.Add(1)
		go func() {
			defer producerWG.Done()
			for j := 0; j < perProd; j++ {
				err := q.Send(newCall(), 5*testtime.Second)
				assert.NoError(t, err)
			}
		}()
	}

	var (
		mu       sync.Mutex
		received = make(map[*Call]int)
	)
	ctx, cancel := context.WithCancel(context.Background())
	var consumerWG sync.WaitGroup
	for i := 0; i < consumers; i++ {
		consumerWG.Add(1)
		go func() {
			defer consumerWG.Done()
			for {
				call, err := q.Receive(ctx, MaxTimeout)
				if err != nil {
					return
				}
				mu.Lock()
				received[call]++
				mu.Unlock()
				call.Reply(func(http.ResponseWriter) error { return nil })
			}
		}()
	}

	producerWG.Wait()
	cancel()
	consumerWG.Wait()

	assert.Len(t, received, producers*perProd)
	for call, n := range received {
		assert.Equal(t, 1, n, "call %p received %d times", call, n)
	}
}

func TestReceiveTimeout(t *testing.T) {
	q := NewQueue()
	timeout := 20 * testtime.Millisecond

	start := time.Now()
	call, err := q.Receive(context.Background(), timeout)
	elapsed := time.Since(start)

	assert.Nil(t, call)
	assert.True(t, errors.Is(err, bridgeerrors.ErrTimeout), "got %v", err)
	assert.True(t, elapsed >= timeout, "returned early after %v", elapsed)
	assert.True(t, elapsed < timeout+testtime.Second, "blocked for %v", elapsed)
}

func TestReceiveContextCancelled(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * testtime.Millisecond)
		cancel()
	}()

	_, err := q.Receive(ctx, MaxTimeout)
	assert.True(t, errors.Is(err, bridgeerrors.ErrAborted), "got %v", err)
}

func TestSendTimeoutWithoutConsumers(t *testing.T) {
	// Two calls on a queue nobody listens to both time out, and the queue
	// keeps working afterwards.
	q := NewQueue()
	timeout := 20 * testtime.Millisecond

	first := sendAsync(q, newCall(), timeout)
	second := sendAsync(q, newCall(), timeout)
	for _, result := range []<-chan error{first, second} {
		err := <-result
		assert.True(t, errors.Is(err, bridgeerrors.ErrTimeout), "got %v", err)
	}
	assert.Zero(t, q.Len(), "timed out calls must leave the queue")

	call := newCall()
	result := sendAsync(q, call, testtime.Second)
	got, err := q.Receive(context.Background(), testtime.Second)
	require.NoError(t, err)
	require.Equal(t, call, got)
	require.NoError(t, got.Reply(func(http.ResponseWriter) error { return nil }))
	assert.NoError(t, <-result)
}

func TestClientDisconnectWhileQueued(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	call := newCall(soapbridgetest.WithContext(ctx))

	result := sendAsync(q, call, testtime.Second)
	waitForLen(t, q, 1)
	cancel()

	err := <-result
	assert.True(t, errors.Is(err, bridgeerrors.ErrAborted), "got %v", err)
	assert.Zero(t, q.Len())

	got, err := q.Receive(context.Background(), 5*testtime.Millisecond)
	assert.Nil(t, got, "an abandoned call must never be received")
	assert.True(t, errors.Is(err, bridgeerrors.ErrTimeout), "got %v", err)
}

func TestReceiveSkipsAbandonedCalls(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	abandoned := newCall(soapbridgetest.WithContext(ctx))
	live := newCall()

	// Enqueue directly so the abandoned call is still queued when Receive
	// runs.
	q.mu.Lock()
	abandoned.elem = q.items.PushBack(abandoned)
	live.elem = q.items.PushBack(live)
	q.mu.Unlock()

	got, err := q.Receive(context.Background(), testtime.Second)
	require.NoError(t, err)
	assert.Equal(t, live, got)

	<-abandoned.Done()
	assert.True(t, errors.Is(abandoned.Err(), bridgeerrors.ErrAborted))
}

func TestReplyAfterClientGone(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	call := newCall(soapbridgetest.WithContext(ctx))
	result := sendAsync(q, call, testtime.Second)

	got, err := q.Receive(context.Background(), testtime.Second)
	require.NoError(t, err)
	cancel()

	wrote := false
	err = got.Reply(func(http.ResponseWriter) error {
		wrote = true
		return nil
	})
	assert.False(t, wrote, "nothing may be written to a departed client")
	assert.True(t, errors.Is(err, bridgeerrors.ErrAborted), "got %v", err)
	assert.True(t, errors.Is(<-result, bridgeerrors.ErrAborted))
}

func TestWaitForItem(t *testing.T) {
	q := NewQueue()

	ok, err := q.WaitForItem(context.Background(), 5*testtime.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok, "empty queue must time out")

	call := newCall()
	sendAsync(q, call, testtime.Second)

	ok, err = q.WaitForItem(context.Background(), testtime.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, q.Len(), "WaitForItem must not dequeue")

	got, err := q.Receive(context.Background(), 0)
	require.NoError(t, err)
	got.Fail(bridgeerrors.AbortedErrorf("done"))
}

func TestCloseFailsQueuedCalls(t *testing.T) {
	q := NewQueue()

	results := make([]<-chan error, 3)
	for i := range results {
		results[i] = sendAsync(q, newCall(), testtime.Second)
	}
	waitForLen(t, q, len(results))

	q.Close()
	q.Close()
	assert.True(t, q.Closed())

	for _, result := range results {
		err := <-result
		assert.True(t, errors.Is(err, bridgeerrors.ErrQueueClosed), "got %v", err)
	}

	err := q.Send(newCall(), testtime.Second)
	assert.True(t, errors.Is(err, bridgeerrors.ErrQueueClosed), "got %v", err)

	_, err = q.Receive(context.Background(), testtime.Second)
	assert.True(t, errors.Is(err, bridgeerrors.ErrQueueClosed), "got %v", err)

	_, err = q.WaitForItem(context.Background(), testtime.Second)
	assert.True(t, errors.Is(err, bridgeerrors.ErrQueueClosed), "got %v", err)
}

func TestCloseWakesReceivers(t *testing.T) {
	q := NewQueue()
	errs := make(chan error, 1)
	go func() {
		_, err := q.Receive(context.Background(), MaxTimeout)
		errs <- err
	}()

	time.Sleep(5 * testtime.Millisecond)
	q.Close()

	select {
	case err := <-errs:
		assert.True(t, errors.Is(err, bridgeerrors.ErrQueueClosed), "got %v", err)
	case <-time.After(testtime.Second):
		t.Fatal("Receive did not return after Close")
	}
}

func TestCallCompletesOnce(t *testing.T) {
	call := newCall()
	assert.Nil(t, call.Err())
	assert.False(t, call.Completed())

	first := bridgeerrors.TimeoutErrorf("first")
	assert.True(t, call.Fail(first))
	assert.False(t, call.Fail(bridgeerrors.AbortedErrorf("second")))
	assert.True(t, call.Completed())
	assert.Equal(t, first, call.Err())

	err := call.Reply(func(http.ResponseWriter) error {
		t.Fatal("completed call must not be written")
		return nil
	})
	assert.Equal(t, first, err)
}

func TestCapTimeout(t *testing.T) {
	tests := []struct {
		give time.Duration
		want time.Duration
	}{
		{give: -1, want: MaxTimeout},
		{give: 0, want: 0},
		{give: time.Second, want: time.Second},
		{give: MaxTimeout + 1, want: MaxTimeout},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.give), func(t *testing.T) {
			assert.Equal(t, tt.want, CapTimeout(tt.give))
		})
	}
}
