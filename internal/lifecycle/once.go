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

// Package lifecycle tracks the communication state of an object that can be
// opened once and closed once.
//
// An object goes Created -> Opening -> Opened -> Closing -> Closed. A failed
// open, a failed close, or an explicit Fault moves it to Faulted. A faulted
// object can still be closed to release what it holds.
package lifecycle

import (
	"context"
	"errors"
	syncatomic "sync/atomic"

	"go.uber.org/atomic"
	"go.uber.org/soapbridge/bridgeerrors"
)

// State is the communication state of an object.
type State int

const (
	// Created indicates the object has not been opened yet.
	Created State = iota

	// Opening indicates Open was called but has not finished.
	Opening

	// Opened indicates the object is usable.
	Opened

	// Closing indicates Close was called but has not finished.
	Closing

	// Closed indicates the object was closed or aborted.
	Closed

	// Faulted indicates the object failed and can only be closed or
	// aborted.
	Faulted
)

var _stateToName = map[State]string{
	Created: "created",
	Opening: "opening",
	Opened:  "opened",
	Closing: "closing",
	Closed:  "closed",
	Faulted: "faulted",
}

func (s State) String() string {
	if name, ok := _stateToName[s]; ok {
		return name
	}
	return "unknown"
}

// Once drives the state machine. The zero value is not usable; use NewOnce.
type Once struct {
	// openCh closes once the object left the Opening state.
	openCh chan struct{}
	// closingCh closes once the object is Closing, Closed or Faulted.
	closingCh chan struct{}
	// closeCh closes once the object is Closed or Faulted.
	closeCh chan struct{}

	closingOnce atomic.Bool
	closeOnce   atomic.Bool

	err   syncatomic.Value
	state atomic.Int32
}

// NewOnce returns a lifecycle in the Created state.
func NewOnce() *Once {
	return &Once{
		openCh:    make(chan struct{}),
		closingCh: make(chan struct{}),
		closeCh:   make(chan struct{}),
	}
}

// Open runs f once and moves to Opened, or to Faulted if f fails. Concurrent
// and later callers wait for the first call and get its error.
func (o *Once) Open(f func() error) error {
	if o.state.CAS(int32(Created), int32(Opening)) {
		var err error
		if f != nil {
			err = f()
		}

		if err != nil {
			o.setError(err)
			o.state.Store(int32(Faulted))
			o.closeClosing()
			o.closeClosed()
		} else {
			o.state.Store(int32(Opened))
		}
		close(o.openCh)
		return err
	}

	<-o.openCh
	if err := o.loadError(); err != nil {
		return err
	}
	if s := o.State(); s != Opened {
		return bridgeerrors.ClosedErrorf("cannot open: state is %q", s)
	}
	return nil
}

// Close runs f once and moves to Closed, or to Faulted if f fails. Closing
// an object that was never opened succeeds without calling f. Closing a
// faulted object runs f so resources are still released.
func (o *Once) Close(f func() error) error {
	if o.state.CAS(int32(Created), int32(Closed)) {
		close(o.openCh)
		o.closeClosing()
		o.closeClosed()
		return nil
	}

	<-o.openCh

	if o.state.CAS(int32(Opened), int32(Closing)) || o.state.CAS(int32(Faulted), int32(Closing)) {
		o.closeClosing()

		var err error
		if f != nil {
			err = f()
		}

		if err != nil {
			o.setError(err)
			o.state.Store(int32(Faulted))
		} else {
			o.state.Store(int32(Closed))
		}
		o.closeClosed()
		return err
	}

	<-o.closeCh
	return o.loadError()
}

// Fault moves an opened object to Faulted, recording err. It returns false
// if the object was not opened.
func (o *Once) Fault(err error) bool {
	if !o.state.CAS(int32(Opened), int32(Faulted)) {
		return false
	}
	if err != nil {
		o.setError(err)
	}
	o.closeClosing()
	return true
}

// WaitUntilOpened blocks until the object is opened, fails to open, or ctx
// ends.
func (o *Once) WaitUntilOpened(ctx context.Context) error {
	state := o.State()
	if state == Opened {
		return nil
	}
	if state > Opened {
		return bridgeerrors.ClosedErrorf("could not wait for open: current state is %q", state)
	}

	select {
	case <-o.openCh:
		if state := o.State(); state != Opened {
			return bridgeerrors.ClosedErrorf("did not open: current state is %q", state)
		}
		return nil
	case <-ctx.Done():
		return bridgeerrors.TimeoutErrorf("context finished while waiting for open: %v", ctx.Err())
	}
}

// CheckOpened returns nil if the object is Opened and a typed error
// describing the state otherwise.
func (o *Once) CheckOpened() error {
	switch state := o.State(); state {
	case Opened:
		return nil
	case Faulted:
		if err := o.loadError(); err != nil {
			return bridgeerrors.FaultedErrorf("faulted: %v", err)
		}
		return bridgeerrors.FaultedErrorf("faulted")
	case Created, Opening:
		return bridgeerrors.ClosedErrorf("not opened: current state is %q", state)
	default:
		return bridgeerrors.ClosedErrorf("current state is %q", state)
	}
}

// Closing returns a channel that closes when the object stops being usable.
func (o *Once) Closing() <-chan struct{} {
	return o.closingCh
}

// Closed returns a channel that closes when the object is Closed or ends up
// Faulted after a close.
func (o *Once) Closed() <-chan struct{} {
	return o.closeCh
}

// State returns the current state.
func (o *Once) State() State {
	return State(o.state.Load())
}

// IsOpened returns true if the object is usable.
func (o *Once) IsOpened() bool {
	return o.State() == Opened
}

func (o *Once) closeClosing() {
	if o.closingOnce.CAS(false, true) {
		close(o.closingCh)
	}
}

func (o *Once) closeClosed() {
	if o.closeOnce.CAS(false, true) {
		close(o.closeCh)
	}
}

// errBox keeps the stored type constant; atomic.Value panics otherwise.
type errBox struct{ err error }

func (o *Once) setError(err error) {
	o.err.Store(errBox{err})
}

func (o *Once) loadError() error {
	errVal := o.err.Load()
	if errVal == nil {
		return nil
	}

	if box, ok := errVal.(errBox); ok {
		return box.err
	}

	return errors.New("lifecycle err was not `error` type")
}
