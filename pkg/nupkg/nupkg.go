// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nupkg reads package metadata from .nupkg archives.
package nupkg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

// maxManifestSize caps how much of a .nuspec is read.
const maxManifestSize = 4 << 20

var (
	ErrNoManifest = errors.New("nupkg: no .nuspec manifest at archive root")
	ErrNoID       = errors.New("nupkg: manifest has no package id")
	ErrNoVersion  = errors.New("nupkg: manifest has no package version")
)

// Metadata is the subset of a .nuspec manifest needed to publish a package.
type Metadata struct {
	ID          string `xml:"id"`
	Version     string `xml:"version"`
	Title       string `xml:"title"`
	Authors     string `xml:"authors"`
	Description string `xml:"description"`
}

type manifest struct {
	Metadata Metadata `xml:"metadata"`
}

// ReadFile returns the metadata of the package archive at name.
func ReadFile(name string) (Metadata, error) {
	f, err := os.Open(name)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return Metadata{}, err
	}
	md, err := Read(f, fi.Size())
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", name, err)
	}
	return md, nil
}

// Read returns the metadata of the package archive in r.
func Read(r io.ReaderAt, size int64) (Metadata, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Metadata{}, fmt.Errorf("nupkg: reading archive: %w", err)
	}
	f := findManifest(zr.File)
	if f == nil {
		return Metadata{}, ErrNoManifest
	}
	rc, err := f.Open()
	if err != nil {
		return Metadata{}, fmt.Errorf("nupkg: opening %s: %w", f.Name, err)
	}
	defer rc.Close()
	return decodeManifest(io.LimitReader(rc, maxManifestSize))
}

func findManifest(files []*zip.File) *zip.File {
	for _, f := range files {
		name := strings.TrimPrefix(f.Name, "/")
		if strings.Contains(name, "/") || strings.Contains(name, `\`) {
			continue
		}
		if strings.EqualFold(path.Ext(name), ".nuspec") {
			return f
		}
	}
	return nil
}

func decodeManifest(r io.Reader) (Metadata, error) {
	var m manifest
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return Metadata{}, fmt.Errorf("nupkg: decoding manifest: %w", err)
	}
	md := m.Metadata
	md.ID = strings.TrimSpace(md.ID)
	md.Version = strings.TrimSpace(md.Version)
	if md.ID == "" {
		return Metadata{}, ErrNoID
	}
	if md.Version == "" {
		return Metadata{}, ErrNoVersion
	}
	return md, nil
}
