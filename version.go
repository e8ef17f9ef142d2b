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
	"fmt"
	"strings"
)

// EnvelopeVersion is the SOAP envelope version of a message.
type EnvelopeVersion int

const (
	// EnvelopeNone carries the body as plain XML without an envelope.
	EnvelopeNone EnvelopeVersion = iota
	// EnvelopeSoap11 is a SOAP 1.1 envelope.
	EnvelopeSoap11
	// EnvelopeSoap12 is a SOAP 1.2 envelope.
	EnvelopeSoap12
)

// Envelope namespaces.
const (
	Soap11Namespace     = "http://schemas.xmlsoap.org/soap/envelope/"
	Soap12Namespace     = "http://www.w3.org/2003/05/soap-envelope"
	AddressingNamespace = "http://www.w3.org/2005/08/addressing"
)

// Namespace returns the XML namespace of the envelope, or an empty string
// for EnvelopeNone.
func (v EnvelopeVersion) Namespace() string {
	switch v {
	case EnvelopeSoap11:
		return Soap11Namespace
	case EnvelopeSoap12:
		return Soap12Namespace
	default:
		return ""
	}
}

// MediaType returns the media type used by the text encoding of this
// envelope version.
func (v EnvelopeVersion) MediaType() string {
	switch v {
	case EnvelopeSoap11:
		return "text/xml"
	case EnvelopeSoap12:
		return "application/soap+xml"
	default:
		return "application/xml"
	}
}

func (v EnvelopeVersion) String() string {
	switch v {
	case EnvelopeSoap11:
		return "soap11"
	case EnvelopeSoap12:
		return "soap12"
	default:
		return "none"
	}
}

// AddressingVersion is the WS-Addressing version of a message.
type AddressingVersion int

const (
	// AddressingNone means addressing information is not carried in the
	// envelope and is derived from HTTP instead.
	AddressingNone AddressingVersion = iota
	// Addressing10 is WS-Addressing 1.0.
	Addressing10
)

func (v AddressingVersion) String() string {
	if v == Addressing10 {
		return "wsa10"
	}
	return "none"
}

// MessageVersion combines an envelope and an addressing version.
type MessageVersion struct {
	Envelope   EnvelopeVersion
	Addressing AddressingVersion
}

// Well-known message versions.
var (
	MessageVersionNone        = MessageVersion{}
	MessageVersionSoap11      = MessageVersion{Envelope: EnvelopeSoap11}
	MessageVersionSoap12      = MessageVersion{Envelope: EnvelopeSoap12}
	MessageVersionSoap11WSA10 = MessageVersion{Envelope: EnvelopeSoap11, Addressing: Addressing10}
	MessageVersionSoap12WSA10 = MessageVersion{Envelope: EnvelopeSoap12, Addressing: Addressing10}
)

func (v MessageVersion) String() string {
	if v.Addressing == AddressingNone {
		return v.Envelope.String()
	}
	return v.Envelope.String() + v.Addressing.String()
}

// MarshalText implements encoding.TextMarshaler.
func (v MessageVersion) MarshalText() ([]byte, error) {
	if v.Envelope == EnvelopeNone && v.Addressing != AddressingNone {
		return nil, fmt.Errorf("addressing %v requires an envelope", v.Addressing)
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *MessageVersion) UnmarshalText(text []byte) error {
	parsed, err := ParseMessageVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseMessageVersion parses names such as "soap11" or "soap12wsa10".
func ParseMessageVersion(s string) (MessageVersion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return MessageVersionNone, nil
	case "soap11":
		return MessageVersionSoap11, nil
	case "soap12":
		return MessageVersionSoap12, nil
	case "soap11wsa10":
		return MessageVersionSoap11WSA10, nil
	case "soap12wsa10":
		return MessageVersionSoap12WSA10, nil
	default:
		return MessageVersion{}, fmt.Errorf("unknown message version %q", s)
	}
}
