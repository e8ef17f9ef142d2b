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

// Package codec reads and writes messages in one of two wire encodings: a
// single-part text encoding and a multi-part MTOM encoding with binary
// attachments.
//
// The encoding of a request is sniffed from its content type and recorded
// on the message, and a reply is written in whatever encoding its message
// carries, so a reply built from a request mirrors it.
package codec

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/soapbridge"
	"go.uber.org/soapbridge/bridgeerrors"
	"go.uber.org/soapbridge/internal/bufferpool"
)

// Defaults for zero Config fields.
const (
	DefaultMaxReceivedMessageSize = 64 * 1024
	DefaultMaxBufferPoolSize      = 512 * 1024
	DefaultMaxBufferSize          = 64 * 1024
	DefaultMaxSizeOfHeaders       = 4 * 1024
)

// Config configures a Codec.
type Config struct {
	// MessageVersion is the envelope and addressing version of every
	// message read or written.
	MessageVersion soapbridge.MessageVersion

	// MaxReceivedMessageSize bounds request bodies in bytes.
	MaxReceivedMessageSize int64

	// MaxBufferPoolSize bounds the bytes of idle buffers kept for reuse.
	MaxBufferPoolSize int

	// MaxBufferSize is the largest buffer kept for reuse.
	MaxBufferSize int

	// MaxSizeOfHeaders bounds the envelope headers of a request in bytes.
	MaxSizeOfHeaders int
}

func (c Config) withDefaults() (Config, error) {
	if c.MaxReceivedMessageSize < 0 || c.MaxBufferPoolSize < 0 || c.MaxBufferSize < 0 || c.MaxSizeOfHeaders < 0 {
		return c, fmt.Errorf("codec sizes must not be negative: %+v", c)
	}
	if c.MaxReceivedMessageSize == 0 {
		c.MaxReceivedMessageSize = DefaultMaxReceivedMessageSize
	}
	if c.MaxBufferPoolSize == 0 {
		c.MaxBufferPoolSize = DefaultMaxBufferPoolSize
	}
	if c.MaxBufferSize == 0 {
		c.MaxBufferSize = DefaultMaxBufferSize
	}
	if c.MaxSizeOfHeaders == 0 {
		c.MaxSizeOfHeaders = DefaultMaxSizeOfHeaders
	}
	return c, nil
}

// Codec negotiates between the text and MTOM encodings.
type Codec struct {
	cfg  Config
	text *textEncoder
	// mtom is nil for message versions without an envelope.
	mtom *mtomEncoder
	pool *bufferpool.Pool
}

// New builds a Codec.
func New(cfg Config) (*Codec, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	c := &Codec{
		cfg:  cfg,
		text: newTextEncoder(cfg.MessageVersion, cfg.MaxSizeOfHeaders),
		pool: bufferpool.NewPool(
			bufferpool.MaxPoolSize(cfg.MaxBufferPoolSize),
			bufferpool.MaxBufferSize(cfg.MaxBufferSize),
		),
	}
	if cfg.MessageVersion.Envelope != soapbridge.EnvelopeNone {
		c.mtom = newMTOMEncoder(cfg.MessageVersion, cfg.MaxSizeOfHeaders)
	}
	return c, nil
}

// MessageVersion returns the configured message version.
func (c *Codec) MessageVersion() soapbridge.MessageVersion {
	return c.cfg.MessageVersion
}

// Config returns the configuration with defaults applied.
func (c *Codec) Config() Config {
	return c.cfg
}

// Encoder returns the encoder for e. Unspecified means text.
func (c *Codec) Encoder(e soapbridge.Encoding) (Encoder, error) {
	switch e {
	case soapbridge.EncodingUnspecified, soapbridge.EncodingText:
		return c.text, nil
	case soapbridge.EncodingMTOM:
		if c.mtom == nil {
			return nil, bridgeerrors.UnsupportedEncodingErrorf(
				"MTOM is not available for message version %v", c.cfg.MessageVersion)
		}
		return c.mtom, nil
	default:
		return nil, bridgeerrors.UnsupportedEncodingErrorf("unknown encoding %v", e)
	}
}

// ReadMessage reads a request body and decodes it with the encoding its
// content type announces. The encoding is recorded on the message.
func (c *Codec) ReadMessage(body io.Reader, contentType string) (*soapbridge.Message, error) {
	if strings.TrimSpace(contentType) == "" {
		return nil, bridgeerrors.ContentTypeRequiredErrorf("request has no content type")
	}

	encoding := soapbridge.EncodingText
	if IsMTOMContentType(contentType) {
		encoding = soapbridge.EncodingMTOM
	}
	enc, err := c.Encoder(encoding)
	if err != nil {
		return nil, err
	}

	buf := c.pool.Get()
	defer buf.Release()

	if _, err := buf.ReadFromLimit(body, c.cfg.MaxReceivedMessageSize); err != nil {
		if bridgeerrors.IsStatus(err) {
			return nil, err
		}
		return nil, bridgeerrors.MalformedMessageErrorf("cannot read request body: %v", err)
	}

	msg, err := enc.ReadMessage(buf.Bytes(), contentType)
	if err != nil {
		return nil, err
	}
	msg.Encoding = enc.Encoding()
	return msg, nil
}

// EncodeMessage encodes msg into w with the encoding it carries and
// returns the content type to send it with.
func (c *Codec) EncodeMessage(w io.Writer, msg *soapbridge.Message) (string, error) {
	enc, err := c.writeEncoder(msg)
	if err != nil {
		return "", err
	}
	return enc.WriteMessage(w, msg)
}

func (c *Codec) writeEncoder(msg *soapbridge.Message) (Encoder, error) {
	if msg.Encoding == soapbridge.EncodingMTOM && c.mtom == nil {
		// Nothing can be read as MTOM without an envelope, so this only
		// happens for hand-built messages.
		return c.text, nil
	}
	return c.Encoder(msg.Encoding)
}

// WriteMessage encodes msg and writes it as an HTTP response: headers,
// status, then body. Nothing is written if encoding fails.
func (c *Codec) WriteMessage(w http.ResponseWriter, msg *soapbridge.Message) error {
	enc, err := c.writeEncoder(msg)
	if err != nil {
		return err
	}

	buf := c.pool.Get()
	defer buf.Release()

	contentType, err := enc.WriteMessage(buf, msg)
	if err != nil {
		return err
	}

	header := w.Header()
	for k, vs := range msg.HTTPHeaders {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	header.Set("Content-Type", contentType)
	if enc.Encoding() == soapbridge.EncodingMTOM {
		header.Set("MIME-Version", "1.0")
	}
	header.Set("Content-Length", strconv.Itoa(buf.Len()))

	status := msg.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
