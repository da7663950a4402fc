// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gallery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func statusServer(t *testing.T, code int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(code)
		io.WriteString(w, "response body that is never parsed")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRequest(t *testing.T, rawURL, method string) *UploadRequest {
	t.Helper()
	r := &UploadRequest{
		URL:         mustParse(t, rawURL),
		Method:      method,
		ContentType: "text/html",
	}
	r.SetAPIKey("key")
	return r
}

func statusPtr(code int) *int {
	return &code
}

func TestExecuteAndClassifyExpectedStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected int
		wantOK   bool
		want     []EventType
	}{
		{"match", http.StatusCreated, http.StatusCreated, true, []EventType{EventStarted, EventCompleted}},
		{"other success", http.StatusOK, http.StatusCreated, false, []EventType{EventStarted, EventFailed}},
		{"conflict", http.StatusConflict, http.StatusCreated, false, []EventType{EventStarted, EventFailed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := statusServer(t, tt.status)
			e := mustEndpoint(t, srv.URL)
			var rec Recorder
			ok, err := e.ExecuteAndClassify(context.Background(), newTestRequest(t, srv.URL+"/", http.MethodPut), statusPtr(tt.expected), &rec)
			if err != nil {
				t.Fatalf("ExecuteAndClassify: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, rec.Types()); diff != "" {
				t.Fatalf("events mismatch (-want +got):\n%s", diff)
			}
			if rec.Events()[0].Progress != 0 {
				t.Fatalf("started progress = %d, want 0", rec.Events()[0].Progress)
			}
		})
	}
}

func TestExecuteAndClassifyWithoutExpectedStatus(t *testing.T) {
	tests := []struct {
		status int
		wantOK bool
	}{
		{http.StatusOK, true},
		{http.StatusAccepted, true},
		{http.StatusNoContent, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusConflict, false},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	}
	for _, tt := range tests {
		srv := statusServer(t, tt.status)
		e := mustEndpoint(t, srv.URL)
		var rec Recorder
		ok, err := e.ExecuteAndClassify(context.Background(), newTestRequest(t, srv.URL+"/Foo/1.0", http.MethodDelete), nil, &rec)
		if err != nil {
			t.Fatalf("status %d: ExecuteAndClassify: %v", tt.status, err)
		}
		if ok != tt.wantOK {
			t.Fatalf("status %d: ok = %v, want %v", tt.status, ok, tt.wantOK)
		}
		want := []EventType{EventStarted, EventCompleted}
		if !tt.wantOK {
			want = []EventType{EventStarted, EventFailed}
		}
		if diff := cmp.Diff(want, rec.Types()); diff != "" {
			t.Fatalf("status %d: events mismatch (-want +got):\n%s", tt.status, diff)
		}
	}
}

func TestExecuteAndClassifyRejectionError(t *testing.T) {
	srv := statusServer(t, http.StatusForbidden)
	e := mustEndpoint(t, srv.URL)
	var rec Recorder
	if _, err := e.ExecuteAndClassify(context.Background(), newTestRequest(t, srv.URL+"/", http.MethodPut), statusPtr(http.StatusCreated), &rec); err != nil {
		t.Fatalf("ExecuteAndClassify: %v", err)
	}
	failures := rec.Failures()
	if len(failures) != 1 {
		t.Fatalf("failures = %v, want 1", failures)
	}
	var rej *RejectionError
	if !errors.As(failures[0], &rej) {
		t.Fatalf("failure = %T, want *RejectionError", failures[0])
	}
	if rej.StatusCode != http.StatusForbidden || rej.Status != "403 Forbidden" {
		t.Fatalf("rejection = %d %q", rej.StatusCode, rej.Status)
	}
	if !errors.Is(rej, ErrRejected) {
		t.Fatal("rejection should match ErrRejected")
	}
	if !strings.Contains(rej.Error(), "403 Forbidden") {
		t.Fatalf("message %q lacks status description", rej.Error())
	}
}

func redirectLoop(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("/loop", http.RedirectHandler("/loop", http.StatusFound))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExecuteAndClassifyErrorWithResponse(t *testing.T) {
	srv := redirectLoop(t)
	e := mustEndpoint(t, srv.URL)

	var rec Recorder
	ok, err := e.ExecuteAndClassify(context.Background(), newTestRequest(t, srv.URL+"/loop", http.MethodGet), statusPtr(http.StatusCreated), &rec)
	if err != nil {
		t.Fatalf("ExecuteAndClassify returned %v, want the failure reported to the observer", err)
	}
	if ok {
		t.Fatal("ok = true, want false")
	}
	if diff := cmp.Diff([]EventType{EventStarted, EventFailed}, rec.Types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	var rej *RejectionError
	if !errors.As(rec.Failures()[0], &rej) {
		t.Fatalf("failure = %T, want *RejectionError", rec.Failures()[0])
	}
	if rej.StatusCode != http.StatusFound || rej.Err == nil {
		t.Fatalf("rejection = %d, cause %v", rej.StatusCode, rej.Err)
	}
	msg := rej.Error()
	if !strings.Contains(msg, "302 Found") || !strings.Contains(msg, "redirects") {
		t.Fatalf("message %q should carry status description and transport message", msg)
	}
}

// An error that carries a response never matches an absent expected status.
func TestExecuteAndClassifyErrorWithResponseNoExpectedStatus(t *testing.T) {
	srv := redirectLoop(t)
	e := mustEndpoint(t, srv.URL)

	var rec Recorder
	ok, err := e.ExecuteAndClassify(context.Background(), newTestRequest(t, srv.URL+"/loop", http.MethodDelete), nil, &rec)
	if err != nil {
		t.Fatalf("ExecuteAndClassify: %v", err)
	}
	if ok {
		t.Fatal("302 with a transport error should not be accepted without an expected status")
	}
	if diff := cmp.Diff([]EventType{EventStarted, EventFailed}, rec.Types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteAndClassifyErrorWithResponseMatchingExpectedStatus(t *testing.T) {
	srv := redirectLoop(t)
	e := mustEndpoint(t, srv.URL)

	var rec Recorder
	ok, err := e.ExecuteAndClassify(context.Background(), newTestRequest(t, srv.URL+"/loop", http.MethodGet), statusPtr(http.StatusFound), &rec)
	if err != nil {
		t.Fatalf("ExecuteAndClassify: %v", err)
	}
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if diff := cmp.Diff([]EventType{EventStarted, EventCompleted}, rec.Types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteAndClassifyNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	rawURL := srv.URL + "/"
	srv.Close()

	e := mustEndpoint(t, rawURL)
	var rec Recorder
	ok, err := e.ExecuteAndClassify(context.Background(), newTestRequest(t, rawURL, http.MethodPut), statusPtr(http.StatusCreated), &rec)
	if err == nil {
		t.Fatal("expected the transport error to be returned")
	}
	if ok {
		t.Fatal("ok = true, want false")
	}
	if diff := cmp.Diff([]EventType{EventStarted}, rec.Types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

type stubTransport struct {
	status int
	body   *trackingBody
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: s.status,
		Header:     make(http.Header),
		Body:       s.body,
		Request:    req,
	}, nil
}

func TestExecuteAndClassifyClosesResponse(t *testing.T) {
	for _, status := range []int{http.StatusCreated, http.StatusNotFound} {
		body := &trackingBody{Reader: strings.NewReader(strings.Repeat("x", 1024))}
		client := &http.Client{Transport: &stubTransport{status: status, body: body}}
		e := mustEndpoint(t, "https://gallery.invalid/", WithHTTPClient(client))

		r := newTestRequest(t, "https://gallery.invalid/api/v2/package/", http.MethodPut)
		if _, err := e.ExecuteAndClassify(context.Background(), r, statusPtr(http.StatusCreated), nil); err != nil {
			t.Fatalf("status %d: ExecuteAndClassify: %v", status, err)
		}
		if !body.closed {
			t.Fatalf("status %d: response body was not closed", status)
		}
	}
}

func TestExecuteAndClassifyStatusTextFallback(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("")}
	client := &http.Client{Transport: &stubTransport{status: http.StatusConflict, body: body}}
	e := mustEndpoint(t, "https://gallery.invalid/", WithHTTPClient(client))

	var rec Recorder
	r := newTestRequest(t, "https://gallery.invalid/api/v2/package/", http.MethodPut)
	if _, err := e.ExecuteAndClassify(context.Background(), r, statusPtr(http.StatusCreated), &rec); err != nil {
		t.Fatalf("ExecuteAndClassify: %v", err)
	}
	var rej *RejectionError
	if !errors.As(rec.Failures()[0], &rej) || rej.Status != "Conflict" {
		t.Fatalf("failure = %v", rec.Failures()[0])
	}
}
