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

package soapbridgefx

import (
	"context"
	"io/ioutil"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/soapbridge"
	"go.uber.org/soapbridge/dispatcher"
	"go.uber.org/soapbridge/router"
	soaphttp "go.uber.org/soapbridge/transport/http"
)

const _yaml = `
soapbridge:
  http:
    address: 127.0.0.1:0
    timeout: 5s
  codec:
    messageVersion: soap12
    maxReceivedMessageSize: 1024
  listener:
    maxConcurrentSessions: 4
    acceptTimeout: 100ms
    replyTimeout: 1s
  routes:
    - path: /math
    - path: /admin/
      method: get
`

func newProvider(t *testing.T, yaml string) config.Provider {
	provider, err := config.NewYAML(config.Source(strings.NewReader(yaml)))
	require.NoError(t, err)
	return provider
}

func TestNewConfig(t *testing.T) {
	res, err := NewConfig(ConfigParams{Provider: newProvider(t, _yaml)})
	require.NoError(t, err)

	cfg := res.Config
	assert.Equal(t, "127.0.0.1:0", cfg.HTTP.Address)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "soap12", cfg.Codec.MessageVersion)
	assert.Equal(t, int64(1024), cfg.Codec.MaxReceivedMessageSize)
	assert.Equal(t, 4, cfg.Listener.MaxConcurrentSessions)
	assert.Equal(t, 100*time.Millisecond, cfg.Listener.AcceptTimeout)
	assert.Equal(t, []RouteConfig{
		{Path: "/math"},
		{Path: "/admin/", Method: "get"},
	}, cfg.Routes)
}

func TestNewConfigRequiresRoutes(t *testing.T) {
	_, err := NewConfig(ConfigParams{Provider: newProvider(t, "soapbridge: {http: {address: ':0'}}")})
	assert.Error(t, err)
}

func TestNewCodec(t *testing.T) {
	res, err := NewCodec(CodecParams{Config: Config{Codec: CodecConfig{MessageVersion: "soap11wsa10"}}})
	require.NoError(t, err)
	assert.Equal(t, soapbridge.MessageVersionSoap11WSA10, res.Codec.MessageVersion())

	_, err = NewCodec(CodecParams{Config: Config{Codec: CodecConfig{MessageVersion: "soap13"}}})
	assert.Error(t, err)

	_, err = NewCodec(CodecParams{Config: Config{Codec: CodecConfig{MaxSizeOfHeaders: -1}}})
	assert.Error(t, err)
}

func TestNewListeners(t *testing.T) {
	codecRes, err := NewCodec(CodecParams{})
	require.NoError(t, err)

	res, err := NewListeners(ListenersParams{
		Config: Config{Routes: []RouteConfig{
			{Path: "/math"},
			{Path: "admin/", Method: "get", Secure: true},
		}},
		Router: router.New(),
		Codec:  codecRes.Codec,
	})
	require.NoError(t, err)
	require.Len(t, res.Listeners, 2)
	assert.Equal(t, soapbridge.RouteKey{BasePath: "/math"}, res.Listeners[0].RouteKey())
	assert.Equal(t, soapbridge.RouteKey{Secure: true, Method: "GET", BasePath: "/admin"}, res.Listeners[1].RouteKey())

	_, err = NewListeners(ListenersParams{
		Config: Config{
			Listener: ListenerConfig{MaxConcurrentSessions: -1},
			Routes:   []RouteConfig{{Path: "/"}},
		},
		Router: router.New(),
		Codec:  codecRes.Codec,
	})
	assert.Error(t, err)
}

func TestRouterClosedOnStop(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	res := NewRouter(RouterParams{Lifecycle: lc})
	lc.RequireStart()

	_, err := res.Router.Resolve(soapbridge.NewRouteKey(false, "", "/math"))
	require.NoError(t, err)

	lc.RequireStop()
	_, err = res.Router.Resolve(soapbridge.NewRouteKey(false, "", "/math"))
	assert.Error(t, err)
}

func TestModule(t *testing.T) {
	var (
		inbound *soaphttp.Inbound
		r       *router.Router
	)
	scope := tally.NewTestScope("", nil)

	app := fxtest.New(t,
		fx.Provide(func() config.Provider { return newProvider(t, _yaml) }),
		fx.Provide(func() tally.Scope { return scope }),
		fx.Provide(func() dispatcher.Handler {
			return dispatcher.HandlerFunc(func(_ context.Context, req *dispatcher.Request) (*soapbridge.Message, error) {
				return soapbridge.NewReply(req.Message, "", []byte("<pong/>")), nil
			})
		}),
		Module,
		fx.Populate(&inbound, &r),
	)
	app.RequireStart()

	assert.Equal(t, []soapbridge.RouteKey{
		{BasePath: "/math"},
		{Method: "GET", BasePath: "/admin"},
	}, r.Routes(), "method-agnostic routes sort first")

	req, err := http.NewRequest(http.MethodPost, inbound.URL()+"/math",
		strings.NewReader(`<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><ping/></s:Body></s:Envelope>`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", `application/soap+xml; charset=utf-8; action="ping"`)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := ioutil.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "application/soap+xml")
	assert.Contains(t, string(body), "<pong/>")

	res, err = http.Get(inbound.URL() + "/admin/status")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode, "GET requests reach the admin route")

	app.RequireStop()
	assert.Empty(t, r.Routes())
	assert.Contains(t, scope.Snapshot().Counters(), "dispatcher.requests+")
}
