// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"time"

	"github.com/shayne/yargs"
	"github.com/yeetrun/nupush/pkg/config"
)

type globalFlagsParsed struct {
	Source           string        `flag:"source" short:"s" help:"Package source URL (NUPUSH_SOURCE)"`
	APIKey           string        `flag:"api-key" short:"k" help:"API key for the source (NUPUSH_API_KEY)"`
	UserAgent        string        `flag:"user-agent" help:"User-Agent sent with every request (NUPUSH_USER_AGENT)"`
	Timeout          time.Duration `flag:"timeout" help:"Timeout for ordinary requests (default 100s)"`
	ReadWriteTimeout time.Duration `flag:"read-write-timeout" help:"Timeout for package uploads (default 5m)"`
	Progress         string        `flag:"progress" help:"Progress output (auto|tty|plain|quiet)"`
	Verbose          bool          `flag:"verbose" short:"v" help:"Log HTTP activity to stderr"`
}

func parseGlobalFlags(args []string) (globalFlagsParsed, []string, error) {
	result, err := yargs.ParseKnownFlags[globalFlagsParsed](args, yargs.KnownFlagsOptions{})
	if err != nil {
		return globalFlagsParsed{}, nil, err
	}
	if result.Flags.Timeout < 0 || result.Flags.ReadWriteTimeout < 0 {
		return globalFlagsParsed{}, nil, fmt.Errorf("timeouts must not be negative")
	}
	return result.Flags, result.RemainingArgs, nil
}

func (f globalFlagsParsed) overrides() config.Overrides {
	return config.Overrides{
		Source:           f.Source,
		APIKey:           f.APIKey,
		UserAgent:        f.UserAgent,
		Timeout:          f.Timeout,
		ReadWriteTimeout: f.ReadWriteTimeout,
	}
}

type pushFlagsParsed struct {
	ID       string `flag:"id" help:"Package id, read from the .nuspec when omitted"`
	Version  string `flag:"version" help:"Package version, read from the .nuspec when omitted"`
	Unlisted bool   `flag:"unlisted" help:"Hide the package from search after pushing it"`
}

type deleteFlagsParsed struct {
	Yes bool `flag:"yes" short:"y" help:"Do not ask for confirmation"`
}

type setAPIKeyFlagsParsed struct{}

type configFlagsParsed struct{}

func buildHelpConfig() yargs.HelpConfig {
	return yargs.HelpConfig{
		Command: yargs.CommandInfo{
			Name:        "nupush",
			Description: "Push packages to and delete packages from a NuGet package gallery.",
			Examples: []string{
				"nupush push ./Contoso.Widgets.1.2.3.nupkg --source https://gallery.example.com/",
				"nupush push ./Contoso.Widgets.1.2.3.nupkg --unlisted",
				"nupush delete Contoso.Widgets 1.2.3",
				"nupush setapikey <key> --source https://gallery.example.com/",
			},
		},
		SubCommands: map[string]yargs.SubCommandInfo{
			"push": {
				Name:        "push",
				Description: "Upload a package to the source",
				Usage:       "PACKAGE [--id ID --version VERSION] [--unlisted]",
				Examples:    []string{"nupush push ./Contoso.Widgets.1.2.3.nupkg"},
			},
			"delete": {
				Name:        "delete",
				Description: "Unlist or delete a package version from the source",
				Usage:       "ID VERSION [--yes]",
				Examples:    []string{"nupush delete Contoso.Widgets 1.2.3", "nupush delete Contoso.Widgets 1.2.3 --yes"},
				Aliases:     []string{"unlist"},
			},
			"setapikey": {
				Name:        "setapikey",
				Description: "Save the API key for a source in the user config file",
				Usage:       "KEY",
			},
			"config": {
				Name:        "config",
				Description: "Print the effective configuration",
			},
		},
	}
}
