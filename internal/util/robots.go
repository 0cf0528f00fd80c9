package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

const (
	maxRobotsBytes = 512 * 1024
	robotsTTL      = 24 * time.Hour
)

// RobotsChecker answers whether a literature API endpoint may be queried.
// Parsed policies are kept per origin for a day; concurrent lookups for an
// origin share one download.
type RobotsChecker struct {
	client   *http.Client
	agent    string
	token    string
	policies *gocache.Cache
	inflight singleflight.Group
}

// NewRobotsChecker builds a checker that identifies itself as userAgent.
// A nil client gets a 10 second timeout.
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsChecker{
		client:   client,
		agent:    userAgent,
		token:    NormalizeUserAgent(userAgent),
		policies: gocache.New(robotsTTL, time.Hour),
	}
}

// CanFetch reports whether rawURL is allowed and the crawl delay declared
// for this agent. When robots.txt cannot be retrieved the request is allowed
// and the retrieval error is returned alongside.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}
	if u.Host == "" {
		return false, 0, fmt.Errorf("URL has no host: %q", rawURL)
	}

	policy, err := r.policy(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return true, 0, err
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	var delay time.Duration
	if g := policy.FindGroup(r.token); g != nil {
		delay = g.CrawlDelay
	}
	return policy.TestAgent(path, r.token), delay, nil
}

func (r *RobotsChecker) policy(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	if cached, ok := r.policies.Get(origin); ok {
		return cached.(*robotstxt.RobotsData), nil
	}
	v, err, _ := r.inflight.Do(origin, func() (any, error) {
		data, err := r.download(ctx, origin)
		if err != nil {
			return nil, err
		}
		r.policies.SetDefault(origin, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*robotstxt.RobotsData), nil
}

func (r *RobotsChecker) download(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}
	// 4xx allows everything, 5xx disallows everything
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}

// NormalizeUserAgent reduces "Name/1.2 (+url)" to "Name", the token
// robots.txt groups are matched against.
func NormalizeUserAgent(ua string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(ua), " ")
	name, _, _ := strings.Cut(first, "/")
	return name
}
