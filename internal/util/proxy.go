package util

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// NewProxyFunc creates a proxy function from a single proxy URL.
// An empty URL falls back to environment variables.
func NewProxyFunc(proxyURL string) (func(*http.Request) (*url.URL, error), error) {
	if proxyURL == "" {
		return http.ProxyFromEnvironment, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("proxy URL must include scheme and host: %q", proxyURL)
	}
	return http.ProxyURL(parsed), nil
}

// NewHTTPClient builds the client shared by all outbound literature and
// embedding requests. Per-request deadlines come from the caller's context;
// timeout is an upper bound.
func NewHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	proxy, err := NewProxyFunc(proxyURL)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy
	transport.MaxIdleConnsPerHost = 8

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}
