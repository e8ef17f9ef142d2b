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

package soapbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageVersionText(t *testing.T) {
	tests := []struct {
		give MessageVersion
		want string
	}{
		{MessageVersionNone, "none"},
		{MessageVersionSoap11, "soap11"},
		{MessageVersionSoap12, "soap12"},
		{MessageVersionSoap11WSA10, "soap11wsa10"},
		{MessageVersionSoap12WSA10, "soap12wsa10"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			text, err := tt.give.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(text))

			var got MessageVersion
			require.NoError(t, got.UnmarshalText(text))
			assert.Equal(t, tt.give, got)
		})
	}
}

func TestParseMessageVersion(t *testing.T) {
	v, err := ParseMessageVersion(" SOAP12WSA10 ")
	require.NoError(t, err)
	assert.Equal(t, MessageVersionSoap12WSA10, v)

	v, err = ParseMessageVersion("")
	require.NoError(t, err)
	assert.Equal(t, MessageVersionNone, v)

	_, err = ParseMessageVersion("soap13")
	assert.Error(t, err)

	var mv MessageVersion
	assert.Error(t, mv.UnmarshalText([]byte("wsa10")))
}

func TestMessageVersionAddressingRequiresEnvelope(t *testing.T) {
	_, err := MessageVersion{Addressing: Addressing10}.MarshalText()
	assert.Error(t, err)
}

func TestEnvelopeVersion(t *testing.T) {
	assert.Equal(t, "text/xml", EnvelopeSoap11.MediaType())
	assert.Equal(t, "application/soap+xml", EnvelopeSoap12.MediaType())
	assert.Equal(t, "application/xml", EnvelopeNone.MediaType())

	assert.Equal(t, Soap11Namespace, EnvelopeSoap11.Namespace())
	assert.Equal(t, Soap12Namespace, EnvelopeSoap12.Namespace())
	assert.Empty(t, EnvelopeNone.Namespace())
}
