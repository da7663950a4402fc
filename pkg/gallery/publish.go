// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gallery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
)

// PackageField is the form field the package archive is uploaded under.
const PackageField = "package"

// PackageIdentity names one version of a package.
type PackageIdentity struct {
	ID      string
	Version string
}

func (p PackageIdentity) String() string {
	return p.ID + " " + p.Version
}

func (p PackageIdentity) validate() error {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Version) == "" {
		return ErrInvalidPackage
	}
	return nil
}

func (p PackageIdentity) path() string {
	return p.ID + "/" + p.Version
}

// PublishRequest describes a package upload.
type PublishRequest struct {
	APIKey string
	// Package is the package archive. It is read sequentially, once.
	Package  io.Reader
	Identity PackageIdentity
	// Unlisted retracts the package right after a successful upload.
	Unlisted bool
}

// Publish uploads a package. The gallery must answer 201 Created.
//
// If the upload is accepted and pr.Unlisted is set, Publish then calls
// Retract for pr.Identity with the same observer, so obs sees two
// started/terminal pairs.
//
// Publish returns ErrRejected if the gallery answered but did not accept a
// request, and the transport error if a request got no response.
func (e *Endpoint) Publish(ctx context.Context, pr PublishRequest, obs Observer) error {
	if pr.APIKey == "" {
		return ErrNoAPIKey
	}
	if pr.Package == nil {
		return errors.New("gallery: package stream is required")
	}
	if pr.Unlisted {
		if err := pr.Identity.validate(); err != nil {
			return err
		}
	}
	r, err := e.NewRequest(ctx, "", http.MethodPut, "application/octet-stream")
	if err != nil {
		return err
	}
	r.SetAPIKey(pr.APIKey)
	r.SetMultipartBody(PackageField, pr.Package)
	r.Timeout = e.readWriteTimeout

	expected := http.StatusCreated
	ok, err := e.ExecuteAndClassify(ctx, r, &expected, obs)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRejected
	}
	if pr.Unlisted {
		return e.Retract(ctx, pr.APIKey, pr.Identity, obs)
	}
	return nil
}

// Retract deletes (unlists) a package version. Any status below 400 counts
// as success.
func (e *Endpoint) Retract(ctx context.Context, apiKey string, id PackageIdentity, obs Observer) error {
	if apiKey == "" {
		return ErrNoAPIKey
	}
	if err := id.validate(); err != nil {
		return err
	}
	r, err := e.NewRequest(ctx, id.path(), http.MethodDelete, "text/html")
	if err != nil {
		return err
	}
	r.SetAPIKey(apiKey)

	ok, err := e.ExecuteAndClassify(ctx, r, nil, obs)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRejected
	}
	return nil
}
