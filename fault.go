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
	"bytes"
	"encoding/xml"
	"net/http"

	"go.uber.org/soapbridge/bridgeerrors"
)

// NewFaultMessage builds the fault reply for a request that failed with err.
// The fault uses the request's version and encoding so that it can be read
// by the same client.
func NewFaultMessage(request *Message, err error) *Message {
	st := bridgeerrors.FromError(err)
	reply := NewReply(request, "", nil)

	callerFault := st.Code().IsCallerError()
	reply.StatusCode = http.StatusInternalServerError
	if callerFault {
		reply.StatusCode = http.StatusBadRequest
	}

	var body bytes.Buffer
	switch reply.Version.Envelope {
	case EnvelopeSoap11:
		code := "s:Server"
		if callerFault {
			code = "s:Client"
		}
		body.WriteString(`<s:Fault xmlns:s="` + Soap11Namespace + `"><faultcode>`)
		body.WriteString(code)
		body.WriteString(`</faultcode><faultstring xml:lang="en">`)
		escape(&body, st.Message())
		body.WriteString(`</faultstring></s:Fault>`)
	case EnvelopeSoap12:
		code := "s:Receiver"
		if callerFault {
			code = "s:Sender"
		}
		body.WriteString(`<s:Fault xmlns:s="` + Soap12Namespace + `"><s:Code><s:Value>`)
		body.WriteString(code)
		body.WriteString(`</s:Value></s:Code><s:Reason><s:Text xml:lang="en">`)
		escape(&body, st.Message())
		body.WriteString(`</s:Text></s:Reason></s:Fault>`)
	default:
		body.WriteString(`<Fault><Code>`)
		body.WriteString(st.Code().String())
		body.WriteString(`</Code><Reason>`)
		escape(&body, st.Message())
		body.WriteString(`</Reason></Fault>`)
	}
	reply.Body = body.Bytes()

	if reply.Version.Addressing == Addressing10 {
		reply.Action = AddressingNamespace + "/fault"
	}
	return reply
}

func escape(buf *bytes.Buffer, s string) {
	// xml.EscapeText only fails if the writer does.
	_ = xml.EscapeText(buf, []byte(s))
}
