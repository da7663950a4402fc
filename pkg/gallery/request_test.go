// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gallery

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/yeetrun/nupush/pkg/gallery/gallerytest"
)

func TestBuildServiceURL(t *testing.T) {
	tests := []struct {
		base string
		rel  string
		want string
	}{
		{"https://gallery.example.com", "", "https://gallery.example.com/api/v2/package/"},
		{"https://gallery.example.com/", "", "https://gallery.example.com/api/v2/package/"},
		{"https://gallery.example.com/", "Foo/1.0.0", "https://gallery.example.com/api/v2/package/Foo/1.0.0"},
		{"https://gallery.example.com:8443/", "Foo/1.0.0-beta", "https://gallery.example.com:8443/api/v2/package/Foo/1.0.0-beta"},
		{"https://myget.example.com/F/feed/api/v2/package/", "", "https://myget.example.com/F/feed/api/v2/package/"},
		{"https://myget.example.com/F/feed/api/v2/package/", "Foo/2.1", "https://myget.example.com/F/feed/api/v2/package/Foo/2.1"},
		{"https://nuget.example.com/feed/", "Foo/2.1", "https://nuget.example.com/feed/Foo/2.1"},
		{"https://nuget.example.com/feed/?tenant=a", "Foo/2.1", "https://nuget.example.com/feed/Foo/2.1?tenant=a"},
		{"https://h.example.com/feeds/a%2Fb/", "Foo/1.0", "https://h.example.com/feeds/a%2Fb/Foo/1.0"},
		{"https://h.example.com/feeds/a%2Fb/", "", "https://h.example.com/feeds/a%2Fb/"},
		{"https://h.example.com/feeds/team%20one/", "Foo/1.0", "https://h.example.com/feeds/team%20one/Foo/1.0"},
	}
	for _, tt := range tests {
		base := mustParse(t, tt.base)
		got := BuildServiceURL(base, tt.rel)
		if got.String() != tt.want {
			t.Errorf("BuildServiceURL(%q, %q) = %q, want %q", tt.base, tt.rel, got, tt.want)
		}
		if base.String() != tt.base {
			t.Errorf("BuildServiceURL modified base: %q", base)
		}
	}
}

func TestNewRequestUserAgent(t *testing.T) {
	srv := gallerytest.NewServer("/api/v2/package/")
	defer srv.Close()

	tests := []struct {
		name string
		ua   string
		want string
		set  bool
	}{
		{name: "unset"},
		{name: "blank", ua: "   "},
		{name: "configured", ua: "nupush/1.0", want: "nupush/1.0", set: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustEndpoint(t, srv.URL, WithUserAgent(tt.ua))
			r, err := e.NewRequest(context.Background(), "Foo/1.0", http.MethodDelete, "text/html")
			if err != nil {
				t.Fatalf("NewRequest: %v", err)
			}
			got, ok := r.Header["User-Agent"]
			if ok != tt.set || got != tt.want {
				t.Fatalf("User-Agent = %q (set=%v), want %q (set=%v)", got, ok, tt.want, tt.set)
			}
			if want := srv.URL + "/api/v2/package/Foo/1.0"; r.URL.String() != want {
				t.Fatalf("URL = %q, want %q", r.URL, want)
			}
			if r.Method != http.MethodDelete || r.ContentType != "text/html" {
				t.Fatalf("method/content type = %s %q", r.Method, r.ContentType)
			}
		})
	}
}

func TestUploadRequestHTTPRequest(t *testing.T) {
	r := &UploadRequest{
		URL:         mustParse(t, "https://gallery.example.com/api/v2/package/"),
		Method:      http.MethodPut,
		ContentType: "application/octet-stream",
	}
	r.SetAPIKey("secret")
	r.SetHeader("user-agent", "nupush/1.0")
	mb := r.SetMultipartBody(PackageField, strings.NewReader("payload"))

	req, err := r.httpRequest(context.Background())
	if err != nil {
		t.Fatalf("httpRequest: %v", err)
	}
	if got := req.Header.Get(APIKeyHeader); got != "secret" {
		t.Fatalf("%s = %q, want secret", APIKeyHeader, got)
	}
	if got := req.Header.Get("User-Agent"); got != "nupush/1.0" {
		t.Fatalf("User-Agent = %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != mb.ContentType {
		t.Fatalf("Content-Type = %q, want %q", got, mb.ContentType)
	}
	if req.ContentLength != mb.Size || mb.Size <= int64(len("payload")) {
		t.Fatalf("ContentLength = %d, body size %d", req.ContentLength, mb.Size)
	}
}
