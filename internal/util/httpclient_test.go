package util

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func proxyFor(t *testing.T, client *http.Client, target string) *url.URL {
	t.Helper()
	u, _ := url.Parse(target)
	got, err := client.Transport.(*http.Transport).Proxy(&http.Request{URL: u})
	if err != nil {
		t.Fatalf("proxy(%s) error: %v", target, err)
	}
	return got
}

func TestNewHTTPClient_Proxies(t *testing.T) {
	tests := []struct {
		name       string
		httpProxy  string
		httpsProxy string
		target     string
		want       string
	}{
		{"http target", "http://plain:3128", "http://secure:3129", "http://example.com/a", "http://plain:3128"},
		{"https target", "http://plain:3128", "http://secure:3129", "https://example.com/a", "http://secure:3129"},
		{"http proxy covers https", "http://plain:3128", "", "https://example.com", "http://plain:3128"},
		{"https only", "", "http://secure:3129", "https://example.com", "http://secure:3129"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewHTTPClient(ClientOptions{HTTPProxy: tt.httpProxy, HTTPSProxy: tt.httpsProxy})
			if err != nil {
				t.Fatalf("NewHTTPClient: %v", err)
			}
			got := proxyFor(t, client, tt.target)
			if got == nil || got.String() != tt.want {
				t.Errorf("proxy = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestNewHTTPClient_InvalidProxy(t *testing.T) {
	for _, raw := range []string{"not a url", "proxy:3128", "://x"} {
		if _, err := NewHTTPClient(ClientOptions{HTTPProxy: raw}); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestNewHTTPClient_Timeout(t *testing.T) {
	client, err := NewHTTPClient(ClientOptions{Timeout: 7 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if client.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v", client.Timeout)
	}
	if client.Transport == http.DefaultTransport {
		t.Error("transport should be a clone, not the shared default")
	}
}

func TestNewHTTPClient_MaxRedirects(t *testing.T) {
	hops := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, "/next", http.StatusFound)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(ClientOptions{MaxRedirects: 2})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	resp, err := client.Get(srv.URL)
	if err == nil {
		_ = resp.Body.Close()
		t.Fatal("expected redirect error")
	}
	if hops != 2 {
		t.Errorf("hops = %d, want 2", hops)
	}
}
