// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gallerytest provides an in-process package gallery for tests.
package gallerytest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

const apiKeyHeader = "X-NuGet-ApiKey"

// Upload is a package upload received by the Server.
type Upload struct {
	Path        string
	APIKey      string
	UserAgent   string
	ContentType string
	// ContentLength is the request length as sent, -1 for chunked.
	ContentLength int64
	FormName      string
	FileName      string
	PartType      string
	Body          []byte
}

// Delete is a package deletion received by the Server.
type Delete struct {
	Path        string
	APIKey      string
	UserAgent   string
	ContentType string
	ID          string
	Version     string
}

// Server is a fake gallery. Its package service is mounted at Prefix.
type Server struct {
	*httptest.Server

	// Prefix is the path of the package service, with trailing slash.
	Prefix string

	mu           sync.Mutex
	apiKey       string
	pushStatus   int
	deleteStatus int
	probes       int
	uploads      []Upload
	deletes      []Delete
}

// NewServer starts a gallery whose package service lives at prefix, e.g.
// "/api/v2/package/". It accepts uploads with 201 and deletes with 204.
func NewServer(prefix string) *Server {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	s := &Server{
		Prefix:       prefix,
		pushStatus:   http.StatusCreated,
		deleteStatus: http.StatusNoContent,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// ServiceURL is the absolute URL of the package service.
func (s *Server) ServiceURL() string {
	return s.URL + s.Prefix
}

// RequireAPIKey makes the server answer 403 to requests without key.
func (s *Server) RequireAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
}

// SetPushStatus sets the status returned for uploads.
func (s *Server) SetPushStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushStatus = code
}

// SetDeleteStatus sets the status returned for deletes.
func (s *Server) SetDeleteStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteStatus = code
}

// Probes returns the number of GET requests served.
func (s *Server) Probes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probes
}

func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) Deletes() []Delete {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delete(nil), s.deletes...)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, statusCode int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		s.mu.Lock()
		s.probes++
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		return
	}
	if !strings.HasPrefix(r.URL.Path, s.Prefix) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.mu.Lock()
	want := s.apiKey
	s.mu.Unlock()
	if want != "" && r.Header.Get(apiKeyHeader) != want {
		writeError(w, http.StatusForbidden, "invalid api key")
		return
	}
	rel := strings.TrimPrefix(r.URL.Path, s.Prefix)
	switch r.Method {
	case http.MethodPut:
		if rel != "" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.handlePush(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r, rel)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	up := Upload{
		Path:          r.URL.Path,
		APIKey:        r.Header.Get(apiKeyHeader),
		UserAgent:     r.Header.Get("User-Agent"),
		ContentType:   r.Header.Get("Content-Type"),
		ContentLength: r.ContentLength,
	}
	if err := readPackagePart(r, &up); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	s.uploads = append(s.uploads, up)
	status := s.pushStatus
	s.mu.Unlock()
	w.WriteHeader(status)
}

func readPackagePart(r *http.Request, up *Upload) error {
	mr, err := r.MultipartReader()
	if err != nil {
		return fmt.Errorf("reading multipart body: %w", err)
	}
	part, err := mr.NextPart()
	if err != nil {
		return fmt.Errorf("reading package part: %w", err)
	}
	defer part.Close()
	up.FormName = part.FormName()
	up.FileName = part.FileName()
	up.PartType = part.Header.Get("Content-Type")
	if up.Body, err = io.ReadAll(part); err != nil {
		return err
	}
	if _, err := mr.NextPart(); !errors.Is(err, io.EOF) {
		return errors.New("expected a single part")
	}
	return nil
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, rel string) {
	id, version, ok := strings.Cut(rel, "/")
	if !ok || id == "" || version == "" || strings.Contains(version, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.mu.Lock()
	s.deletes = append(s.deletes, Delete{
		Path:        r.URL.Path,
		APIKey:      r.Header.Get(apiKeyHeader),
		UserAgent:   r.Header.Get("User-Agent"),
		ContentType: r.Header.Get("Content-Type"),
		ID:          id,
		Version:     version,
	})
	status := s.deleteStatus
	s.mu.Unlock()
	w.WriteHeader(status)
}
