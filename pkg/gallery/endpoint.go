// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gallery

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tailscale.com/types/lazy"
	"tailscale.com/types/logger"
)

const (
	// DefaultTimeout bounds a whole request/response exchange.
	DefaultTimeout = 100 * time.Second
	// DefaultReadWriteTimeout bounds package uploads, which can be large.
	DefaultReadWriteTimeout = 5 * time.Minute
)

// Endpoint is a gallery reached through a configured source URL. It is safe
// for concurrent use.
type Endpoint struct {
	source           *url.URL
	userAgent        string
	client           *http.Client
	readWriteTimeout time.Duration
	logf             logger.Logf

	// baseURL is resolved on first use and never changes afterwards. A
	// failed resolution is remembered too.
	baseURL lazy.SyncValue[*url.URL]
}

// Option configures an Endpoint in NewEndpoint.
type Option func(*Endpoint)

// WithUserAgent sets the User-Agent sent with every request. An empty value
// sends no User-Agent header of our own.
func WithUserAgent(ua string) Option {
	return func(e *Endpoint) {
		e.userAgent = strings.TrimSpace(ua)
	}
}

// WithHTTPClient sets the client used for all requests. The client's
// Timeout is used for everything except uploads.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Endpoint) {
		if c != nil {
			e.client = c
		}
	}
}

// WithReadWriteTimeout sets the timeout applied to package uploads.
func WithReadWriteTimeout(d time.Duration) Option {
	return func(e *Endpoint) {
		if d > 0 {
			e.readWriteTimeout = d
		}
	}
}

// WithLogf sets the logger for request and resolution diagnostics. The
// default discards everything.
func WithLogf(logf logger.Logf) Option {
	return func(e *Endpoint) {
		if logf != nil {
			e.logf = logf
		}
	}
}

// NewEndpoint returns an Endpoint for source. It does not touch the network.
func NewEndpoint(source string, opts ...Option) (*Endpoint, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, ErrNoSource
	}
	u, err := url.Parse(source)
	if err != nil {
		return nil, &ConfigError{Source: source, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ConfigError{Source: source, Err: errors.New("scheme must be http or https")}
	}
	if u.Host == "" {
		return nil, &ConfigError{Source: source, Err: errors.New("missing host")}
	}
	e := &Endpoint{
		source:           u,
		client:           &http.Client{Timeout: DefaultTimeout},
		readWriteTimeout: DefaultReadWriteTimeout,
		logf:             logger.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Source returns the configured source URL.
func (e *Endpoint) Source() *url.URL {
	return cloneURL(e.source)
}

// UserAgent returns the configured user agent, possibly empty.
func (e *Endpoint) UserAgent() string {
	return e.userAgent
}

// BaseURL returns the resolved base URL of the gallery, resolving it on the
// first call. Concurrent first calls share a single resolution.
//
// The shared resolution is not cancelled by ctx; it runs until it finishes
// or the client timeout expires, and its result is memoized. A caller whose
// ctx ends first stops waiting and gets ctx.Err().
func (e *Endpoint) BaseURL(ctx context.Context) (*url.URL, error) {
	type result struct {
		u   *url.URL
		err error
	}
	done := make(chan result, 1)
	go func() {
		u, err := e.baseURL.GetErr(func() (*url.URL, error) {
			return e.resolve(context.WithoutCancel(ctx))
		})
		done <- result{u, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return cloneURL(r.u), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Endpoint) resolve(ctx context.Context) (*url.URL, error) {
	u, err := ResolveBaseURL(ctx, e.client, e.source, e.userAgent)
	if err != nil {
		e.logf("gallery: resolving %s: %v", e.source.Redacted(), err)
		return nil, err
	}
	e.logf("gallery: %s resolved to %s", e.source.Redacted(), u.Redacted())
	return u, nil
}

// ResolveBaseURL requests source and returns the URL the client finally
// reached after following redirects, with a trailing slash.
//
// When the client gives up on a redirect chain it still reports the last
// response it received; the URL of that response is used. An error that
// comes without any response is returned unchanged.
func ResolveBaseURL(ctx context.Context, client *http.Client, source *url.URL, userAgent string) (*url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.String(), nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if resp != nil {
		defer closeResponse(resp)
	}
	if err != nil && resp == nil {
		return nil, err
	}
	final := source
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return withTrailingSlash(final), nil
}

func withTrailingSlash(u *url.URL) *url.URL {
	u = cloneURL(u)
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		if u.RawPath != "" {
			u.RawPath += "/"
		}
	}
	return u
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	u2 := *u
	if u.User != nil {
		u2.User = new(url.Userinfo)
		*u2.User = *u.User
	}
	return &u2
}
