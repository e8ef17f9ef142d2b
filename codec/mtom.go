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

package codec

import (
	"bytes"
	"io"
	"io/ioutil"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/soapbridge"
	"go.uber.org/soapbridge/bridgeerrors"
)

// _startID is the Content-ID of the root part of written packages.
const _startID = "<http://tempuri.org/0>"

// mtomEncoder reads and writes multi-part XOP packages whose root part is
// an envelope and whose other parts are binary attachments.
type mtomEncoder struct {
	version       soapbridge.MessageVersion
	maxHeaderSize int

	// newBoundary is replaced in tests.
	newBoundary func() string
}

var _ Encoder = (*mtomEncoder)(nil)

func newMTOMEncoder(version soapbridge.MessageVersion, maxHeaderSize int) *mtomEncoder {
	return &mtomEncoder{
		version:       version,
		maxHeaderSize: maxHeaderSize,
		newBoundary: func() string {
			return "uuid:" + uuid.New().String()
		},
	}
}

func (e *mtomEncoder) Encoding() soapbridge.Encoding {
	return soapbridge.EncodingMTOM
}

func (e *mtomEncoder) ContentType() string {
	return _multipartMediaType + `; type="` + _xopMediaType + `"`
}

func (e *mtomEncoder) ReadMessage(body []byte, contentType string) (*soapbridge.Message, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, bridgeerrors.MalformedMessageErrorf("cannot parse content type %q: %v", contentType, err)
	}
	if mediaType != _multipartMediaType {
		return nil, bridgeerrors.UnsupportedEncodingErrorf("content type %q is not a multipart package", mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, bridgeerrors.MalformedMessageErrorf("multipart content type has no boundary")
	}
	if startInfo := params["start-info"]; startInfo != "" {
		if err := e.checkStartInfo(startInfo); err != nil {
			return nil, err
		}
	}
	start := params["start"]

	var (
		root        []byte
		foundRoot   bool
		attachments []soapbridge.Attachment
	)
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, bridgeerrors.MalformedMessageErrorf("cannot read multipart package: %v", err)
		}

		data, err := ioutil.ReadAll(part)
		if err != nil {
			return nil, bridgeerrors.MalformedMessageErrorf("cannot read part: %v", err)
		}

		id := part.Header.Get("Content-ID")
		isRoot := !foundRoot && (start == "" || id == start)
		if isRoot {
			if err := e.checkRootType(part.Header.Get("Content-Type")); err != nil {
				return nil, err
			}
			root, foundRoot = data, true
			continue
		}
		attachments = append(attachments, soapbridge.Attachment{
			ContentID:   strings.TrimSuffix(strings.TrimPrefix(id, "<"), ">"),
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	if !foundRoot {
		return nil, bridgeerrors.MalformedMessageErrorf("multipart package has no root part")
	}

	msg, err := decodeEnvelope(e.version, root, e.maxHeaderSize)
	if err != nil {
		return nil, err
	}
	msg.Attachments = attachments
	return msg, nil
}

func (e *mtomEncoder) checkStartInfo(startInfo string) error {
	mediaType, _, err := mime.ParseMediaType(startInfo)
	if err != nil {
		return bridgeerrors.MalformedMessageErrorf("cannot parse start-info %q: %v", startInfo, err)
	}
	if mediaType != e.version.Envelope.MediaType() {
		return bridgeerrors.UnsupportedEncodingErrorf(
			"start-info %q does not match message version %v", mediaType, e.version)
	}
	return nil
}

func (e *mtomEncoder) checkRootType(contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return bridgeerrors.MalformedMessageErrorf("cannot parse root part content type %q: %v", contentType, err)
	}
	if mediaType != _xopMediaType {
		return bridgeerrors.MalformedMessageErrorf("root part has content type %q, expected %q", mediaType, _xopMediaType)
	}
	return nil
}

func (e *mtomEncoder) WriteMessage(w io.Writer, msg *soapbridge.Message) (string, error) {
	boundary := e.newBoundary()
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(boundary); err != nil {
		return "", err
	}

	startInfo := e.version.Envelope.MediaType()
	rootHeader := make(textproto.MIMEHeader)
	rootHeader.Set("Content-ID", _startID)
	rootHeader.Set("Content-Transfer-Encoding", "8bit")
	rootHeader.Set("Content-Type", _xopMediaType+`;charset=utf-8;type="`+startInfo+`"`)
	root, err := mw.CreatePart(rootHeader)
	if err != nil {
		return "", err
	}
	if err := encodeEnvelope(root, e.version, msg); err != nil {
		return "", err
	}

	for _, a := range msg.Attachments {
		header := make(textproto.MIMEHeader)
		header.Set("Content-ID", "<"+a.ContentID+">")
		header.Set("Content-Transfer-Encoding", "binary")
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			return "", err
		}
		if _, err := part.Write(a.Data); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	return mime.FormatMediaType(_multipartMediaType, map[string]string{
		"type":       _xopMediaType,
		"start":      _startID,
		"boundary":   boundary,
		"start-info": startInfo,
	}), nil
}
