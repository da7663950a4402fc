// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var DefaultFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const defaultSpinInterval = 120 * time.Millisecond

// Spinner redraws a single status line on a terminal until stopped.
type Spinner struct {
	out        io.Writer
	frames     []string
	interval   time.Duration
	hideCursor bool
	color      Colorizer
	frameColor string

	mu    sync.Mutex // guards the fields below and writes to out
	msg   string
	frame int
	stop  chan struct{}
	done  chan struct{}
}

type SpinnerOption func(*Spinner)

func WithFrames(frames []string) SpinnerOption {
	return func(s *Spinner) {
		if len(frames) > 0 {
			s.frames = frames
		}
	}
}

func WithInterval(d time.Duration) SpinnerOption {
	return func(s *Spinner) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithHideCursor(hide bool) SpinnerOption {
	return func(s *Spinner) { s.hideCursor = hide }
}

func WithColor(c Colorizer, frameColor string) SpinnerOption {
	return func(s *Spinner) {
		s.color = c
		s.frameColor = frameColor
	}
}

func NewSpinner(out io.Writer, opts ...SpinnerOption) *Spinner {
	s := &Spinner{
		out:      out,
		frames:   DefaultFrames,
		interval: defaultSpinInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start draws msg and begins animating. Calling Start on a running spinner
// only replaces the message.
func (s *Spinner) Start(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msg = msg
	if s.stop != nil {
		s.drawLocked()
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	if s.hideCursor {
		io.WriteString(s.out, "\x1b[?25l")
	}
	s.drawLocked()
	go s.run(s.stop, s.done)
}

// Update replaces the message. It is a no-op if the spinner is stopped.
func (s *Spinner) Update(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msg = msg
	if s.stop != nil {
		s.drawLocked()
	}
}

// Stop halts the animation. With clear, the line is erased; otherwise the
// last frame is left in place and the cursor moves to the next line.
func (s *Spinner) Stop(clear bool) {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	if clear {
		io.WriteString(s.out, "\r\x1b[K")
	} else {
		io.WriteString(s.out, "\n")
	}
	if s.hideCursor {
		io.WriteString(s.out, "\x1b[?25h")
	}
}

func (s *Spinner) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(s.frames)
			s.drawLocked()
			s.mu.Unlock()
		}
	}
}

func (s *Spinner) drawLocked() {
	line := s.color.Wrap(s.frameColor, s.frames[s.frame%len(s.frames)])
	if s.msg != "" {
		line += " " + s.msg
	}
	fmt.Fprintf(s.out, "\r\x1b[K%s", line)
}
