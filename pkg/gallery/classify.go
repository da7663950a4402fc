// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gallery

import (
	"context"
	"io"
	"net/http"
)

// maxDrain is how much of an unread response body is consumed before
// closing it, so the connection can be reused.
const maxDrain = 64 << 10

// ExecuteAndClassify sends r and reports the outcome to obs.
//
// With expected set, only that status is accepted. Without it, any status
// below 400 is accepted. An accepted response emits EventCompleted and
// returns true; any other response emits EventFailed with a
// *RejectionError and returns false.
//
// If the client fails but still hands back a response (for example when it
// stops following redirects), the response is accepted only if expected is
// set and matches it exactly. An absent expected status never matches on
// this path.
//
// If the client fails without a response, the error is returned and obs
// sees no terminal event.
func (e *Endpoint) ExecuteAndClassify(ctx context.Context, r *UploadRequest, expected *int, obs Observer) (bool, error) {
	if obs == nil {
		obs = discardObserver{}
	}
	req, err := r.httpRequest(ctx)
	if err != nil {
		return false, err
	}

	client := e.client
	if r.Timeout > 0 && r.Timeout != client.Timeout {
		c := *client
		c.Timeout = r.Timeout
		client = &c
	}

	obs.Observe(Event{Type: EventStarted, Progress: 0})
	resp, err := client.Do(req)
	if resp != nil {
		defer closeResponse(resp)
	}
	if err != nil {
		if resp == nil {
			e.logf("gallery: %s %s: %v", r.Method, r.URL.Redacted(), err)
			return false, err
		}
		if expected != nil && resp.StatusCode == *expected {
			e.logf("gallery: %s %s: %s (ignoring %v)", r.Method, r.URL.Redacted(), resp.Status, err)
			obs.Observe(Event{Type: EventCompleted})
			return true, nil
		}
		return e.reject(obs, r, resp, err), nil
	}

	if !accepts(resp.StatusCode, expected) {
		return e.reject(obs, r, resp, nil), nil
	}
	e.logf("gallery: %s %s: %s", r.Method, r.URL.Redacted(), resp.Status)
	obs.Observe(Event{Type: EventCompleted})
	return true, nil
}

func (e *Endpoint) reject(obs Observer, r *UploadRequest, resp *http.Response, cause error) bool {
	rej := &RejectionError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Err:        cause,
	}
	if rej.Status == "" {
		rej.Status = http.StatusText(resp.StatusCode)
	}
	e.logf("gallery: %s %s: %v", r.Method, r.URL.Redacted(), rej)
	obs.Observe(Event{Type: EventFailed, Err: rej})
	return false
}

// accepts reports whether status is a success for the given expectation.
func accepts(status int, expected *int) bool {
	if expected != nil {
		return status == *expected
	}
	return status < http.StatusBadRequest
}

func closeResponse(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	resp.Body.Close()
}
