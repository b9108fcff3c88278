// Package util holds small helpers shared by the outbound HTTP clients.
package util

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ClientOptions configures an outbound client for providers and the page fetcher
type ClientOptions struct {
	Timeout      time.Duration
	HTTPProxy    string
	HTTPSProxy   string
	MaxRedirects int // 0 keeps the net/http default of 10
}

// NewHTTPClient returns a client whose transport clones http.DefaultTransport
// with the configured proxies. Proxy URLs are validated here, not per request.
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	proxy, err := proxyFunc(opts.HTTPProxy, opts.HTTPSProxy)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy

	client := &http.Client{Timeout: opts.Timeout, Transport: transport}
	if opts.MaxRedirects > 0 {
		limit := opts.MaxRedirects
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("stopped after %d redirects", limit)
			}
			return nil
		}
	}
	return client, nil
}

// proxyFunc picks the https proxy for https targets and the http proxy for
// everything else; with neither set the environment decides.
func proxyFunc(httpProxy, httpsProxy string) (func(*http.Request) (*url.URL, error), error) {
	plain, err := parseProxy("http_proxy", httpProxy)
	if err != nil {
		return nil, err
	}
	secure, err := parseProxy("https_proxy", httpsProxy)
	if err != nil {
		return nil, err
	}
	if plain == nil && secure == nil {
		return http.ProxyFromEnvironment, nil
	}
	if secure == nil {
		secure = plain
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" {
			return secure, nil
		}
		if plain != nil {
			return plain, nil
		}
		return http.ProxyFromEnvironment(req)
	}, nil
}

func parseProxy(name, raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return u, nil
}
