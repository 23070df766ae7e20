package fetch

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// Transport defaults.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 15 * time.Second
	DefaultUserAgent      = "realestate-mcp/1.0"
)

// NewTransport returns an HTTP/1.1 transport with a bounded dial and a
// bounded wait for response headers. HTTP_PROXY, HTTPS_PROXY and NO_PROXY
// are read once, when the transport is built.
func NewTransport(connectTimeout, readTimeout time.Duration) *http.Transport {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 proxyFunc(httpproxy.FromEnvironment()),
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		ExpectContinueTimeout: time.Second,
		IdleConnTimeout:       90 * time.Second,
	}
}

func proxyFunc(cfg *httpproxy.Config) func(*http.Request) (*url.URL, error) {
	resolve := cfg.ProxyFunc()
	return func(r *http.Request) (*url.URL, error) {
		return resolve(r.URL)
	}
}

// NewClient returns an http.Client over NewTransport. It has no overall
// Timeout: the pipeline bounds each fetch with a context deadline instead.
func NewClient(connectTimeout, readTimeout time.Duration) *http.Client {
	return &http.Client{Transport: NewTransport(connectTimeout, readTimeout)}
}
