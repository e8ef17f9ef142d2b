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

package net

import (
	"context"
	"io/ioutil"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/soapbridge/internal/testtime"
)

func TestStartAndShutdown(t *testing.T) {
	server := NewHTTPServer(&http.Server{
		Addr: "127.0.0.1:0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hello"))
		}),
	})
	require.NoError(t, server.ListenAndServe())
	assert.False(t, server.Secure())

	require.NotNil(t, server.Listener())
	addr := HostPort(server.Listener().Addr())

	res, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, err := ioutil.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, "hello", string(body))

	require.NoError(t, server.Shutdown(context.Background()))
	assert.Nil(t, server.Listener())
	_, err = net.Dial("tcp", addr)
	require.Error(t, err)
}

func TestStartAddrInUse(t *testing.T) {
	s1 := NewHTTPServer(&http.Server{Addr: "127.0.0.1:0"})
	require.NoError(t, s1.ListenAndServe())
	defer s1.Shutdown(context.Background())

	addr := HostPort(s1.Listener().Addr())
	s2 := NewHTTPServer(&http.Server{Addr: addr})
	err := s2.ListenAndServe()

	require.Error(t, err)
	oe, ok := err.(*net.OpError)
	assert.True(t, ok && oe.Op == "listen", "expected a listen error")
}

func TestShutdownWaitsForRequests(t *testing.T) {
	entered := make(chan struct{})
	server := NewHTTPServer(&http.Server{
		Addr: "127.0.0.1:0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(entered)
			time.Sleep(20 * testtime.Millisecond)
			w.Write([]byte("done"))
		}),
	})
	require.NoError(t, server.ListenAndServe())
	addr := HostPort(server.Listener().Addr())

	result := make(chan string, 1)
	go func() {
		res, err := http.Get("http://" + addr + "/")
		if err != nil {
			result <- err.Error()
			return
		}
		defer res.Body.Close()
		body, _ := ioutil.ReadAll(res.Body)
		result <- string(body)
	}()

	<-entered
	require.NoError(t, server.Shutdown(context.Background()))
	assert.Equal(t, "done", <-result)
}

func TestShutdownAndListen(t *testing.T) {
	server := NewHTTPServer(&http.Server{Addr: "127.0.0.1:0"})
	require.NoError(t, server.ListenAndServe())
	require.NoError(t, server.Shutdown(context.Background()))
	require.Error(t, server.ListenAndServe())
}

func TestShutdownWithoutStart(t *testing.T) {
	server := NewHTTPServer(&http.Server{Addr: "127.0.0.1:0"})
	require.NoError(t, server.Shutdown(context.Background()))
}

func TestStartTwice(t *testing.T) {
	server := NewHTTPServer(&http.Server{Addr: "127.0.0.1:0"})
	require.NoError(t, server.ListenAndServe())
	require.Error(t, server.ListenAndServe())
	require.NoError(t, server.Shutdown(context.Background()))
}

func TestShutdownTwice(t *testing.T) {
	server := NewHTTPServer(&http.Server{Addr: "127.0.0.1:0"})
	require.NoError(t, server.ListenAndServe())
	require.NoError(t, server.Shutdown(context.Background()))
	require.NoError(t, server.Shutdown(context.Background()))
}

func TestListenFail(t *testing.T) {
	server := NewHTTPServer(&http.Server{Addr: "invalid"})
	require.Error(t, server.ListenAndServe())
}

func TestSecure(t *testing.T) {
	assert.True(t, NewHTTPSServer(&http.Server{}, "cert.pem", "key.pem").Secure())
	assert.False(t, NewHTTPServer(&http.Server{}).Secure())
}

func TestHostPort(t *testing.T) {
	assert.Equal(t, "127.0.0.1:80", HostPort(&net.TCPAddr{Port: 80}))
	assert.Equal(t, "127.0.0.1:80", HostPort(&net.TCPAddr{IP: net.IPv6zero, Port: 80}))
	assert.Equal(t, "10.0.0.1:8080", HostPort(&net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 8080}))
}
