// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The nupush command pushes packages to a NuGet package gallery.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/shayne/yargs"
	"github.com/yeetrun/nupush/pkg/gallery"
	"golang.org/x/term"
	"tailscale.com/types/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	// After the first signal, restore default handling so a second one
	// kills the process.
	context.AfterFunc(ctx, cancel)
	err := run(ctx, os.Args[1:])
	cancel()
	if err != nil {
		printCLIError(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flags, remaining, err := parseGlobalFlags(args)
	if err != nil {
		return err
	}
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	a := &app{
		flags:       flags,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		dir:         dir,
		isTTY:       term.IsTerminal(int(os.Stderr.Fd())),
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
		logf:        logger.Discard,
	}
	if flags.Verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
		a.logf = log.Printf
	}
	return a.run(ctx, remaining)
}

func (a *app) run(ctx context.Context, args []string) error {
	helpConfig := buildHelpConfig()
	args = yargs.ApplyAliases(args, helpConfig)
	return yargs.RunSubcommands(ctx, args, helpConfig, globalFlagsParsed{}, a.handlers())
}

func printCLIError(w io.Writer, err error) {
	if err == nil {
		return
	}
	prefix := "error: "
	var rej *gallery.RejectionError
	switch {
	case errors.As(err, &rej):
		prefix = "rejected: "
	case errors.Is(err, context.Canceled):
		err = errors.New("interrupted")
	}
	fmt.Fprintln(w, color.RedString(prefix)+err.Error())
}
