// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Mode selects how Steps renders progress.
type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeTTY   Mode = "tty"
	ModePlain Mode = "plain"
	ModeQuiet Mode = "quiet"
)

// ParseMode parses a --progress value. The empty string means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeTTY, ModePlain, ModeQuiet:
		return m, nil
	}
	return "", fmt.Errorf("invalid progress mode %q (want auto, tty, plain or quiet)", s)
}

// Resolve reports whether to animate and whether to print at all, given
// whether the output is a terminal.
func (m Mode) Resolve(isTTY bool) (animate, quiet bool) {
	switch m {
	case ModeTTY:
		return true, false
	case ModePlain:
		return false, false
	case ModeQuiet:
		return false, true
	}
	return isTTY, false
}

// Steps prints a sequence of named steps. On a terminal each running step
// gets a spinner and finishes as a ✔ or ✖ line; otherwise each state
// change is one key=value line suitable for logs.
type Steps struct {
	out     io.Writer
	animate bool
	quiet   bool
	action  string
	color   Colorizer

	mu      sync.Mutex
	current string
	spinner *Spinner
}

// NewSteps returns a Steps writing to out. Action tags every plain line.
func NewSteps(out io.Writer, mode Mode, isTTY bool, action string) *Steps {
	animate, quiet := mode.Resolve(isTTY)
	return &Steps{
		out:     out,
		animate: animate,
		quiet:   quiet,
		action:  action,
		color:   NewColorizer(animate),
	}
}

func (s *Steps) Start(name string) {
	if s.quiet {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopSpinnerLocked()
	s.current = name
	if !s.animate {
		fmt.Fprintln(s.out, s.kv("running", name, ""))
		return
	}
	s.spinner = NewSpinner(s.out,
		WithColor(s.color, ColorYellow),
		WithHideCursor(true),
	)
	s.spinner.Start(name)
}

// Detail updates the running step's spinner text. Plain output ignores it.
func (s *Steps) Detail(detail string) {
	if s.quiet {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spinner == nil || s.current == "" {
		return
	}
	text := s.current
	if detail != "" {
		text += " " + detail
	}
	s.spinner.Update(text)
}

func (s *Steps) Done(detail string) { s.finish("ok", detail) }
func (s *Steps) Fail(detail string) { s.finish("err", detail) }

func (s *Steps) finish(status, detail string) {
	if s.quiet {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := s.current
	if name == "" {
		return
	}
	s.current = ""
	s.stopSpinnerLocked()
	if !s.animate {
		fmt.Fprintln(s.out, s.kv(status, name, detail))
		return
	}
	mark := s.color.OK("✔")
	if status == "err" {
		mark = s.color.Err("✖")
	}
	line := mark + " " + name
	if detail != "" {
		line += " " + s.color.Dim("("+detail+")")
	}
	fmt.Fprintln(s.out, line)
}

// Close stops any running spinner without printing a result.
func (s *Steps) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopSpinnerLocked()
}

func (s *Steps) stopSpinnerLocked() {
	if s.spinner != nil {
		s.spinner.Stop(true)
		s.spinner = nil
	}
}

func (s *Steps) kv(status, step, detail string) string {
	return FormatKV(
		"action", s.action,
		"status", status,
		"step", step,
		"detail", detail,
	)
}

// FormatKV joins key/value pairs as key=value, quoting values that need it
// and skipping empty ones.
func FormatKV(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		k, v := strings.TrimSpace(pairs[i]), strings.TrimSpace(pairs[i+1])
		if k == "" || v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		if strings.ContainsAny(v, " \t\n\"=") {
			v = strconv.Quote(v)
		}
		b.WriteString(v)
	}
	return b.String()
}
