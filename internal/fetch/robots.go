package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

// robotsTTL bounds how long a host's rules are trusted
const robotsTTL = time.Hour

// Verdict is the robots.txt answer for one URL
type Verdict struct {
	Allowed    bool
	CrawlDelay time.Duration
}

// RobotsChecker answers robots.txt questions, keeping parsed rules per host
// for robotsTTL. Hosts whose robots.txt cannot be retrieved are allowed.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	token     string
	rules     *gocache.Cache
}

// NewRobotsChecker shares client with the page fetcher
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		token:     productToken(userAgent),
		rules:     gocache.New(robotsTTL, 2*robotsTTL),
	}
}

// Check returns the verdict for target
func (r *RobotsChecker) Check(ctx context.Context, target *url.URL) Verdict {
	data := r.rulesFor(ctx, target)
	if data == nil {
		return Verdict{Allowed: true}
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	v := Verdict{Allowed: data.TestAgent(path, r.token)}
	if group := data.FindGroup(r.token); group != nil {
		v.CrawlDelay = group.CrawlDelay
	}
	return v
}

// Forget drops the cached rules for host
func (r *RobotsChecker) Forget(host string) {
	r.rules.Delete(host)
}

func (r *RobotsChecker) rulesFor(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	host := target.Host
	if cached, ok := r.rules.Get(host); ok {
		return cached.(*robotstxt.RobotsData)
	}

	data, err := r.download(ctx, fmt.Sprintf("%s://%s/robots.txt", target.Scheme, host))
	if err != nil {
		// not cached, so a transient outage is retried on the next check
		return nil
	}
	r.rules.SetDefault(host, data)
	return data
}

func (r *RobotsChecker) download(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	// 4xx allows everything and 5xx disallows everything, per robotstxt
	return robotstxt.FromResponse(resp)
}

// productToken reduces "TruthLens/0.1 (+url)" to "TruthLens" for group matching
func productToken(ua string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(ua), " ")
	token, _, _ := strings.Cut(first, "/")
	return token
}
