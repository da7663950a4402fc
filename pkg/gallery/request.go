// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gallery

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"tailscale.com/util/mak"
)

const (
	// APIKeyHeader carries the gallery API key.
	APIKeyHeader = "X-NuGet-ApiKey"

	// servicePath is appended to a bare gallery host.
	servicePath = "/api/v2/package/"
)

// UploadRequest describes a single request to the gallery. It is built by
// Endpoint.NewRequest and consumed by Endpoint.ExecuteAndClassify.
type UploadRequest struct {
	URL         *url.URL
	Method      string
	ContentType string
	// Header holds additional request headers, keyed by canonical name.
	Header map[string]string
	Body   io.Reader
	// ContentLength is the length of Body, or -1 if unknown. Zero with a
	// non-nil Body is also treated as unknown.
	ContentLength int64
	// Timeout overrides the client timeout for this request when positive.
	Timeout time.Duration
}

// SetHeader sets a request header, replacing any previous value.
func (r *UploadRequest) SetHeader(key, value string) {
	mak.Set(&r.Header, http.CanonicalHeaderKey(key), value)
}

// SetAPIKey attaches the gallery API key.
func (r *UploadRequest) SetAPIKey(key string) {
	r.SetHeader(APIKeyHeader, key)
}

// SetMultipartBody replaces the body with a multipart/form-data encoding of
// content under field. The request content type becomes the multipart one.
func (r *UploadRequest) SetMultipartBody(field string, content io.Reader) *MultipartBody {
	mb := EncodeMultipart(field, content)
	r.Body = mb
	r.ContentType = mb.ContentType
	r.ContentLength = mb.Size
	return mb
}

func (r *UploadRequest) httpRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL.String(), r.Body)
	if err != nil {
		return nil, err
	}
	if r.Body != nil && r.ContentLength != 0 {
		req.ContentLength = r.ContentLength
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}
	return req, nil
}

// BuildServiceURL returns the URL of rel on the package service at base.
//
// When base has an empty or root path it is a bare gallery host, and the
// result is base + "/api/v2/package/" + rel. Otherwise base already points
// at the package service and the result is base + rel, with the escaping of
// base's path preserved.
func BuildServiceURL(base *url.URL, rel string) *url.URL {
	u := cloneURL(base)
	if u.Path == "" || u.Path == "/" {
		u.Path = servicePath + rel
		u.RawPath = ""
		return u
	}
	escaped := u.EscapedPath()
	u.Path += rel
	if u.RawPath != "" {
		// Keep the base's own encoding, e.g. a %2F inside a feed name.
		u.RawPath = escaped + (&url.URL{Path: rel}).EscapedPath()
	}
	return u
}

// NewRequest resolves the base URL, if not done yet, and returns a request
// for path on the package service.
func (e *Endpoint) NewRequest(ctx context.Context, path, method, contentType string) (*UploadRequest, error) {
	base, err := e.BaseURL(ctx)
	if err != nil {
		return nil, err
	}
	r := &UploadRequest{
		URL:         BuildServiceURL(base, path),
		Method:      method,
		ContentType: contentType,
	}
	if e.userAgent != "" {
		r.SetHeader("User-Agent", e.userAgent)
	}
	return r, nil
}
