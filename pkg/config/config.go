// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads nupush settings from config files, the environment
// and command line overrides.
//
// Settings are layered, later layers winning:
//
//  1. the user file, ~/.nupush/config.toml ($NUPUSH_CONFIG_DIR overrides the directory)
//  2. the nearest nupush.toml in the working directory or any parent
//  3. NUPUSH_SOURCE, NUPUSH_API_KEY and NUPUSH_USER_AGENT
//  4. command line flags
//
// API keys may be stored per source in an [api_keys] table keyed by source
// URL; a key for the selected source wins over the plain api_key setting.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"tailscale.com/util/mak"
)

const (
	ProjectFileName = "nupush.toml"
	userFileName    = "config.toml"

	EnvSource    = "NUPUSH_SOURCE"
	EnvAPIKey    = "NUPUSH_API_KEY"
	EnvUserAgent = "NUPUSH_USER_AGENT"
	EnvConfigDir = "NUPUSH_CONFIG_DIR"
)

// File is the on-disk format shared by the user and project files.
type File struct {
	Source           string            `toml:"source,omitempty"`
	APIKey           string            `toml:"api_key,omitempty"`
	UserAgent        string            `toml:"user_agent,omitempty"`
	Timeout          string            `toml:"timeout,omitempty"`
	ReadWriteTimeout string            `toml:"read_write_timeout,omitempty"`
	APIKeys          map[string]string `toml:"api_keys,omitempty"`
}

// Config is the effective configuration.
type Config struct {
	Source           string        `json:"source"`
	APIKey           string        `json:"apiKey,omitempty"`
	UserAgent        string        `json:"userAgent,omitempty"`
	Timeout          time.Duration `json:"timeout,omitempty"`
	ReadWriteTimeout time.Duration `json:"readWriteTimeout,omitempty"`

	// Files lists the config files that were read, lowest precedence first.
	Files []string `json:"files,omitempty"`
}

// Overrides are values given on the command line. Zero values are ignored.
type Overrides struct {
	Source           string
	APIKey           string
	UserAgent        string
	Timeout          time.Duration
	ReadWriteTimeout time.Duration
}

// Redacted returns c with the API key masked.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "****"
	}
	return c
}

// UserDir returns the directory holding the user config file.
func UserDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".nupush"), nil
}

// Load builds the effective configuration for a command run from dir.
func Load(dir string, o Overrides) (Config, error) {
	var merged File
	var cfg Config

	userDir, err := UserDir()
	if err != nil {
		return Config{}, err
	}
	userPath := filepath.Join(userDir, userFileName)
	if f, err := readFile(userPath); err == nil {
		merged.merge(f)
		cfg.Files = append(cfg.Files, userPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	if projectPath, err := findProjectFile(dir); err == nil {
		f, err := readFile(projectPath)
		if err != nil {
			return Config{}, err
		}
		merged.merge(f)
		cfg.Files = append(cfg.Files, projectPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	cfg.Source = firstNonEmpty(o.Source, os.Getenv(EnvSource), merged.Source)
	cfg.APIKey = firstNonEmpty(o.APIKey, os.Getenv(EnvAPIKey), merged.APIKeys[normalizeSource(cfg.Source)], merged.APIKey)
	cfg.UserAgent = firstNonEmpty(o.UserAgent, os.Getenv(EnvUserAgent), merged.UserAgent)

	if cfg.Timeout, err = parseDuration("timeout", merged.Timeout); err != nil {
		return Config{}, err
	}
	if cfg.ReadWriteTimeout, err = parseDuration("read_write_timeout", merged.ReadWriteTimeout); err != nil {
		return Config{}, err
	}
	if o.Timeout > 0 {
		cfg.Timeout = o.Timeout
	}
	if o.ReadWriteTimeout > 0 {
		cfg.ReadWriteTimeout = o.ReadWriteTimeout
	}
	return cfg, nil
}

// SaveAPIKey stores key for source in the user config file and returns the
// file's path.
func SaveAPIKey(source, key string) (string, error) {
	source = normalizeSource(source)
	if source == "" {
		return "", errors.New("config: source is required")
	}
	if strings.TrimSpace(key) == "" {
		return "", errors.New("config: api key is required")
	}
	dir, err := UserDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, userFileName)
	f, err := readFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	mak.Set(&f.APIKeys, source, key)
	if err := writeFile(path, f); err != nil {
		return "", err
	}
	return path, nil
}

func (f *File) merge(o File) {
	if o.Source != "" {
		f.Source = o.Source
	}
	if o.APIKey != "" {
		f.APIKey = o.APIKey
	}
	if o.UserAgent != "" {
		f.UserAgent = o.UserAgent
	}
	if o.Timeout != "" {
		f.Timeout = o.Timeout
	}
	if o.ReadWriteTimeout != "" {
		f.ReadWriteTimeout = o.ReadWriteTimeout
	}
	for k, v := range o.APIKeys {
		mak.Set(&f.APIKeys, normalizeSource(k), v)
	}
}

func readFile(path string) (File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return File{}, err
		}
		return File{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}

func writeFile(path string, f File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(out).Encode(f); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return out.Close()
}

func findProjectFile(startDir string) (string, error) {
	dir := filepath.Clean(startDir)
	for {
		path := filepath.Join(dir, ProjectFileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func parseDuration(name, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", name, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", name)
	}
	return d, nil
}

// normalizeSource makes equivalent spellings of a source URL compare equal.
func normalizeSource(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
