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

// Package testtime dilates the waits used in tests by the TEST_TIME_SCALE
// environment variable, so that the concurrency tests do not flake on CPU
// starved machines.
package testtime

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const _scaleEnv = "TEST_TIME_SCALE"

var (
	// X is the multiplier read from TEST_TIME_SCALE.
	X = 1.0
	// Millisecond is a millisecond in test time.
	Millisecond = time.Millisecond
	// Second is a second in test time.
	Second = time.Second
)

func init() {
	if v := os.Getenv(_scaleEnv); v != "" {
		fv, err := strconv.ParseFloat(v, 64)
		if err != nil || fv <= 0 {
			panic(fmt.Sprintf("%s must be a positive number, got %q", _scaleEnv, v))
		}
		X = fv
		fmt.Fprintln(os.Stderr, "Scaling test time by factor", X)
	}

	Millisecond = Scale(time.Millisecond)
	Second = Scale(time.Second)
}

// Scale returns the duration multiplied by X.
func Scale(d time.Duration) time.Duration {
	return time.Duration(X * float64(d))
}

// WaitUntil polls cond every test millisecond until it holds or timeout
// passes in test time. It returns the last result of cond.
func WaitUntil(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(Scale(timeout))
	for !cond() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(Millisecond)
	}
	return true
}
