package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/proxy"
)

// Dialer returns a SOCKS5 dialer for addr, or nil when addr is empty.
func Dialer(addr string) (proxy.ContextDialer, error) {
	if addr == "" {
		return nil, nil
	}
	d, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("socks dialer does not support contexts")
	}
	return cd, nil
}

// NewHTTPClient is the client for the speech API. An empty addr gives a
// direct client with the same timeout.
func NewHTTPClient(addr string) (*http.Client, error) {
	d, err := Dialer(addr)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if d != nil {
		transport.Proxy = nil
		transport.DialContext = d.DialContext
	}

	return &http.Client{
		Transport: transport,
		Timeout:   120 * time.Second,
	}, nil
}

// NewWSDialer routes websocket connections for the bus through the proxy.
func NewWSDialer(addr string) (*websocket.Dialer, error) {
	d, err := Dialer(addr)
	if err != nil {
		return nil, err
	}

	ws := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
	}
	if d != nil {
		ws.Proxy = func(*http.Request) (*url.URL, error) { return nil, nil }
		ws.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return d.DialContext(ctx, network, addr)
		}
	}
	return ws, nil
}
