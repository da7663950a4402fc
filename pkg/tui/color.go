// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import "os"

const (
	ColorReset  = "\x1b[0m"
	ColorRed    = "\x1b[31m"
	ColorGreen  = "\x1b[32m"
	ColorYellow = "\x1b[33m"
	ColorDim    = "\x1b[90m"
)

// Colorizer wraps text in ANSI color codes when Enabled.
type Colorizer struct {
	Enabled bool
}

// NewColorizer returns a Colorizer that is enabled only if enabled is true
// and the environment allows color (NO_COLOR unset, TERM set and not dumb).
func NewColorizer(enabled bool) Colorizer {
	return Colorizer{Enabled: enabled && colorAllowed()}
}

func colorAllowed() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	switch os.Getenv("TERM") {
	case "", "dumb":
		return false
	}
	return true
}

func (c Colorizer) Wrap(code, text string) string {
	if !c.Enabled || code == "" || text == "" {
		return text
	}
	return code + text + ColorReset
}

func (c Colorizer) OK(text string) string   { return c.Wrap(ColorGreen, text) }
func (c Colorizer) Err(text string) string  { return c.Wrap(ColorRed, text) }
func (c Colorizer) Warn(text string) string { return c.Wrap(ColorYellow, text) }
func (c Colorizer) Dim(text string) string  { return c.Wrap(ColorDim, text) }
