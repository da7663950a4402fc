// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gallery

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSource is returned by NewEndpoint when the source URL is empty.
	ErrNoSource = errors.New("gallery: source URL is required")
	// ErrNoAPIKey is returned when an operation is attempted without an API key.
	ErrNoAPIKey = errors.New("gallery: API key is required")
	// ErrInvalidPackage is returned when a package id or version is empty.
	ErrInvalidPackage = errors.New("gallery: package id and version are required")
	// ErrRejected is returned by Publish and Retract when the server answered
	// but did not accept the request. The details were delivered to the
	// Observer as a *RejectionError.
	ErrRejected = errors.New("gallery: request rejected by server")
)

// ConfigError reports a source URL that cannot be used as a gallery endpoint.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("gallery: invalid source %q: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// RejectionError is delivered with EventFailed when the gallery responded
// with a status the operation does not accept.
type RejectionError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int
	// Status is the status line description, e.g. "409 Conflict".
	Status string
	// Err is the transport error that accompanied the response, if any.
	Err error
}

func (e *RejectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to process request: '%s'", e.Status)
	}
	return fmt.Sprintf("failed to process request: '%s': %v", e.Status, e.Err)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRejected.
func (e *RejectionError) Is(target error) bool {
	return target == ErrRejected
}
