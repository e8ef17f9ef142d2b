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

package soapbridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/soapbridge"
	"go.uber.org/soapbridge/soapbridgetest"
)

func TestViaURI(t *testing.T) {
	tests := []struct {
		msg  string
		opts []soapbridgetest.Option
		want string
	}{
		{
			msg:  "default host",
			opts: []soapbridgetest.Option{soapbridgetest.WithHost(""), soapbridgetest.WithPath("/math/")},
			want: "http://localhost/math",
		},
		{
			msg: "secure",
			opts: []soapbridgetest.Option{
				soapbridgetest.WithSecure(),
				soapbridgetest.WithHost("example.com:8443"),
				soapbridgetest.WithPath("svc"),
			},
			want: "https://example.com:8443/svc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			tc := soapbridgetest.NewTransportContext(tt.opts...)
			assert.Equal(t, tt.want, soapbridge.ViaURI(tc))
		})
	}
}
