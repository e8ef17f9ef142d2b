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

// Package soapbridgefx wires a bridge from configuration into an fx
// application. Applications provide a dispatcher.Handler and a
// config.Provider; the module serves the configured routes over HTTP:
//
//   soapbridge:
//     http:
//       address: ":8080"
//     codec:
//       messageVersion: soap11
//     routes:
//       - path: /math
package soapbridgefx

import (
	"context"
	"errors"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/uber-go/tally"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/soapbridge"
	"go.uber.org/soapbridge/channel"
	"go.uber.org/soapbridge/codec"
	"go.uber.org/soapbridge/dispatcher"
	"go.uber.org/soapbridge/router"
	soaphttp "go.uber.org/soapbridge/transport/http"
	"go.uber.org/zap"
)

const _configurationKey = "soapbridge"

// Module produces the bridge router, codec and listeners, and starts the
// dispatcher and the HTTP inbound.
var Module = fx.Options(
	fx.Provide(NewConfig),
	fx.Provide(NewRouter),
	fx.Provide(NewCodec),
	fx.Provide(NewListeners),
	fx.Provide(NewInbound),
	fx.Invoke(StartDispatcher),
	fx.Invoke(StartInbound),
)

// Config is the configuration of the bridge.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Codec    CodecConfig    `yaml:"codec"`
	Listener ListenerConfig `yaml:"listener"`
	Routes   []RouteConfig  `yaml:"routes"`
}

// HTTPConfig configures the HTTP inbound.
type HTTPConfig struct {
	Address string `yaml:"address"`
	// Timeout bounds how long a call waits for its reply.
	Timeout  time.Duration `yaml:"timeout"`
	CertFile string        `yaml:"certFile"`
	KeyFile  string        `yaml:"keyFile"`
}

// CodecConfig configures message encoding.
type CodecConfig struct {
	// MessageVersion is one of none, soap11, soap12, soap11wsa10 or
	// soap12wsa10.
	MessageVersion         string `yaml:"messageVersion"`
	MaxReceivedMessageSize int64  `yaml:"maxReceivedMessageSize"`
	MaxBufferPoolSize      int    `yaml:"maxBufferPoolSize"`
	MaxBufferSize          int    `yaml:"maxBufferSize"`
	MaxSizeOfHeaders       int    `yaml:"maxSizeOfHeaders"`
}

// ListenerConfig configures the listeners and their accept loops.
type ListenerConfig struct {
	MaxConcurrentSessions int           `yaml:"maxConcurrentSessions"`
	AcceptTimeout         time.Duration `yaml:"acceptTimeout"`
	ReplyTimeout          time.Duration `yaml:"replyTimeout"`
	AcceptRate            float64       `yaml:"acceptRate"`
}

// RouteConfig declares a route served by a listener.
type RouteConfig struct {
	Path   string `yaml:"path"`
	Method string `yaml:"method"`
	Secure bool   `yaml:"secure"`
}

// ConfigParams defines the dependencies of this module.
type ConfigParams struct {
	fx.In

	Provider config.Provider
}

// ConfigResult defines the values produced by this module.
type ConfigResult struct {
	fx.Out

	Config Config
}

// NewConfig produces a Config.
func NewConfig(p ConfigParams) (ConfigResult, error) {
	cfg := Config{}
	if err := p.Provider.Get(_configurationKey).Populate(&cfg); err != nil {
		return ConfigResult{}, err
	}
	if len(cfg.Routes) == 0 {
		return ConfigResult{}, errors.New("soapbridge: at least one route must be configured")
	}
	return ConfigResult{Config: cfg}, nil
}

// RouterParams defines the dependencies of this module.
type RouterParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *zap.Logger `optional:"true"`
	Scope     tally.Scope `optional:"true"`
}

// RouterResult defines the values produced by this module.
type RouterResult struct {
	fx.Out

	Router *router.Router
}

// NewRouter produces a Router that is closed when the application stops.
func NewRouter(p RouterParams) RouterResult {
	var scope tally.Scope
	if p.Scope != nil {
		scope = p.Scope.SubScope("router")
	}
	r := router.New(router.Logger(p.Logger), router.Scope(scope))
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return r.Close()
		},
	})
	return RouterResult{Router: r}
}

// CodecParams defines the dependencies of this module.
type CodecParams struct {
	fx.In

	Config Config
}

// CodecResult defines the values produced by this module.
type CodecResult struct {
	fx.Out

	Codec *codec.Codec
}

// NewCodec produces a Codec.
func NewCodec(p CodecParams) (CodecResult, error) {
	version, err := soapbridge.ParseMessageVersion(p.Config.Codec.MessageVersion)
	if err != nil {
		return CodecResult{}, err
	}
	c, err := codec.New(codec.Config{
		MessageVersion:         version,
		MaxReceivedMessageSize: p.Config.Codec.MaxReceivedMessageSize,
		MaxBufferPoolSize:      p.Config.Codec.MaxBufferPoolSize,
		MaxBufferSize:          p.Config.Codec.MaxBufferSize,
		MaxSizeOfHeaders:       p.Config.Codec.MaxSizeOfHeaders,
	})
	if err != nil {
		return CodecResult{}, err
	}
	return CodecResult{Codec: c}, nil
}

// ListenersParams defines the dependencies of this module.
type ListenersParams struct {
	fx.In

	Config Config
	Router *router.Router
	Codec  *codec.Codec
	Logger *zap.Logger `optional:"true"`
	Scope  tally.Scope `optional:"true"`
}

// ListenersResult defines the values produced by this module.
type ListenersResult struct {
	fx.Out

	Listeners []*channel.Listener
}

// NewListeners produces one listener per configured route.
func NewListeners(p ListenersParams) (ListenersResult, error) {
	var scope tally.Scope
	if p.Scope != nil {
		scope = p.Scope.SubScope("listener")
	}

	listeners := make([]*channel.Listener, 0, len(p.Config.Routes))
	for _, route := range p.Config.Routes {
		l, err := channel.NewListener(channel.Config{
			Registry:              p.Router,
			Key:                   soapbridge.NewRouteKey(route.Secure, route.Method, route.Path),
			Codec:                 p.Codec,
			MaxConcurrentSessions: p.Config.Listener.MaxConcurrentSessions,
			Logger:                p.Logger,
			Scope:                 scope,
		})
		if err != nil {
			return ListenersResult{}, err
		}
		listeners = append(listeners, l)
	}
	return ListenersResult{Listeners: listeners}, nil
}

// StartDispatcherParams defines the dependencies of this module.
type StartDispatcherParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    Config
	Listeners []*channel.Listener
	Handler   dispatcher.Handler
	Logger    *zap.Logger `optional:"true"`
	Scope     tally.Scope `optional:"true"`
}

// StartDispatcher constructs the dispatcher and ties it to the application
// lifecycle.
func StartDispatcher(p StartDispatcherParams) error {
	var scope tally.Scope
	if p.Scope != nil {
		scope = p.Scope.SubScope("dispatcher")
	}

	d, err := dispatcher.New(dispatcher.Config{
		Listeners:     p.Listeners,
		Handler:       p.Handler,
		AcceptTimeout: p.Config.Listener.AcceptTimeout,
		ReplyTimeout:  p.Config.Listener.ReplyTimeout,
		AcceptRate:    p.Config.Listener.AcceptRate,
		Logger:        p.Logger,
		Scope:         scope,
	})
	if err != nil {
		return err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: d.Start,
		OnStop:  d.Stop,
	})
	return nil
}

// InboundParams defines the dependencies of this module.
type InboundParams struct {
	fx.In

	Config Config
	Router *router.Router
	Logger *zap.Logger        `optional:"true"`
	Tracer opentracing.Tracer `optional:"true"`
}

// InboundResult defines the values produced by this module.
type InboundResult struct {
	fx.Out

	Inbound *soaphttp.Inbound
}

// NewInbound produces the HTTP inbound. It is started by StartInbound.
func NewInbound(p InboundParams) InboundResult {
	opts := []soaphttp.InboundOption{
		soaphttp.Logger(p.Logger),
		soaphttp.Tracer(p.Tracer),
	}
	if p.Config.HTTP.Timeout > 0 {
		opts = append(opts, soaphttp.Timeout(p.Config.HTTP.Timeout))
	}
	if p.Config.HTTP.CertFile != "" || p.Config.HTTP.KeyFile != "" {
		opts = append(opts, soaphttp.TLS(p.Config.HTTP.CertFile, p.Config.HTTP.KeyFile))
	}
	return InboundResult{
		Inbound: soaphttp.NewInbound(p.Config.HTTP.Address, p.Router, opts...),
	}
}

// StartInboundParams defines the dependencies of this module.
type StartInboundParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Inbound   *soaphttp.Inbound
}

// StartInbound starts the inbound with the application and stops it first
// on shutdown, so that no new calls arrive while the dispatcher drains.
func StartInbound(p StartInboundParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: p.Inbound.Start,
		OnStop:  p.Inbound.Stop,
	})
}
