// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/shayne/yargs"
	"github.com/yeetrun/nupush/pkg/cmdutil"
	"github.com/yeetrun/nupush/pkg/config"
	"github.com/yeetrun/nupush/pkg/gallery"
	"github.com/yeetrun/nupush/pkg/nupkg"
	"github.com/yeetrun/nupush/pkg/tui"
	"tailscale.com/types/logger"
)

// userAgent is sent when no user agent is configured.
const userAgent = "nupush/1.0"

var errCanceled = errors.New("canceled")

// app holds what every command needs. Tests build one around buffers.
type app struct {
	flags  globalFlagsParsed
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	dir    string
	isTTY  bool
	// interactive reports whether stdin is a terminal a person can answer
	// prompts on.
	interactive bool
	logf        logger.Logf
	client      *http.Client // nil means http.DefaultTransport
}

func (a *app) handlers() map[string]yargs.SubcommandHandler {
	return map[string]yargs.SubcommandHandler{
		"push":      a.handlePush,
		"delete":    a.handleDelete,
		"setapikey": a.handleSetAPIKey,
		"config":    a.handleConfig,
	}
}

func (a *app) loadConfig() (config.Config, error) {
	return config.Load(a.dir, a.flags.overrides())
}

// endpoint returns the gallery endpoint and API key for a command that
// talks to the source.
func (a *app) endpoint(cfg config.Config) (*gallery.Endpoint, error) {
	if cfg.Source == "" {
		return nil, fmt.Errorf("%w; pass --source, set %s or add source to %s", gallery.ErrNoSource, config.EnvSource, config.ProjectFileName)
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = userAgent
	}
	client := &http.Client{Timeout: gallery.DefaultTimeout}
	if a.client != nil {
		c := *a.client
		client = &c
	}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	opts := []gallery.Option{
		gallery.WithUserAgent(ua),
		gallery.WithHTTPClient(client),
		gallery.WithLogf(a.logf),
	}
	if cfg.ReadWriteTimeout > 0 {
		opts = append(opts, gallery.WithReadWriteTimeout(cfg.ReadWriteTimeout))
	}
	return gallery.NewEndpoint(cfg.Source, opts...)
}

func (a *app) steps(action string) (*tui.Steps, error) {
	mode, err := tui.ParseMode(a.flags.Progress)
	if err != nil {
		return nil, err
	}
	return tui.NewSteps(a.stderr, mode, a.isTTY, action), nil
}

func requireAPIKey(cfg config.Config) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("%w; pass --api-key, set %s or run 'nupush setapikey'", gallery.ErrNoAPIKey, config.EnvAPIKey)
	}
	return nil
}

func (a *app) handlePush(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "push" {
		args = args[1:]
	}
	result, err := yargs.ParseFlags[pushFlagsParsed](args)
	if err != nil {
		return err
	}
	if len(result.Args) != 1 {
		return errors.New("push takes exactly one PACKAGE argument")
	}
	path := result.Args[0]

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if err := requireAPIKey(cfg); err != nil {
		return err
	}
	id, err := packageIdentity(path, result.Flags)
	if err != nil {
		return err
	}
	e, err := a.endpoint(cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}

	steps, err := a.steps("push")
	if err != nil {
		return err
	}
	defer steps.Close()
	transfer := tui.NewTransfer(fi.Size())
	label := filepath.Base(path)
	if id.ID != "" && id.Version != "" {
		label = id.String()
	}
	obs := newConsoleObserver(steps, transfer, "Pushing "+label)
	if result.Flags.Unlisted {
		obs.queue("Unlisting " + label)
	}
	stop := obs.watch()
	err = e.Publish(ctx, gallery.PublishRequest{
		APIKey:   cfg.APIKey,
		Package:  transfer.Reader(f),
		Identity: id,
		Unlisted: result.Flags.Unlisted,
	}, obs)
	stop()
	return obs.result(err)
}

// packageIdentity takes the id and version from flags, falling back to
// the package manifest for whichever is missing.
func packageIdentity(path string, flags pushFlagsParsed) (gallery.PackageIdentity, error) {
	id := gallery.PackageIdentity{
		ID:      strings.TrimSpace(flags.ID),
		Version: strings.TrimSpace(flags.Version),
	}
	if id.ID != "" && id.Version != "" {
		return id, nil
	}
	md, err := nupkg.ReadFile(path)
	if err != nil {
		if flags.Unlisted {
			return id, fmt.Errorf("--unlisted needs the package id and version: %w", err)
		}
		// Only used for display; the gallery reads the manifest itself.
		return id, nil
	}
	if id.ID == "" {
		id.ID = md.ID
	}
	if id.Version == "" {
		id.Version = md.Version
	}
	return id, nil
}

func (a *app) handleDelete(ctx context.Context, args []string) error {
	if len(args) > 0 && (args[0] == "delete" || args[0] == "unlist") {
		args = args[1:]
	}
	result, err := yargs.ParseFlags[deleteFlagsParsed](args)
	if err != nil {
		return err
	}
	if len(result.Args) != 2 {
		return errors.New("delete takes ID and VERSION arguments")
	}
	id := gallery.PackageIdentity{ID: result.Args[0], Version: result.Args[1]}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if err := requireAPIKey(cfg); err != nil {
		return err
	}
	e, err := a.endpoint(cfg)
	if err != nil {
		return err
	}
	if a.interactive && !result.Flags.Yes {
		msg := fmt.Sprintf("%s will be deleted from %s. Continue?", id, cfg.Source)
		ok, err := cmdutil.Confirm(a.stdin, a.stderr, msg)
		if err != nil {
			return err
		}
		if !ok {
			return errCanceled
		}
	}
	steps, err := a.steps("delete")
	if err != nil {
		return err
	}
	defer steps.Close()
	obs := newConsoleObserver(steps, nil, "Deleting "+id.String())
	return obs.result(e.Retract(ctx, cfg.APIKey, id, obs))
}

func (a *app) handleSetAPIKey(_ context.Context, args []string) error {
	if len(args) > 0 && args[0] == "setapikey" {
		args = args[1:]
	}
	result, err := yargs.ParseFlags[setAPIKeyFlagsParsed](args)
	if err != nil {
		return err
	}
	if len(result.Args) != 1 {
		return errors.New("setapikey takes exactly one KEY argument")
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Source == "" {
		return fmt.Errorf("%w; pass --source to choose which source the key is for", gallery.ErrNoSource)
	}
	path, err := config.SaveAPIKey(cfg.Source, result.Args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "API key for %s saved to %s\n", cfg.Source, path)
	return nil
}

func (a *app) handleConfig(_ context.Context, args []string) error {
	if len(args) > 0 && args[0] == "config" {
		args = args[1:]
	}
	if _, err := yargs.ParseFlags[configFlagsParsed](args); err != nil {
		return err
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, string(b))
	return nil
}
