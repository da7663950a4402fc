// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"sync"
	"time"

	"github.com/yeetrun/nupush/pkg/gallery"
	"github.com/yeetrun/nupush/pkg/tui"
)

const progressInterval = 120 * time.Millisecond

// consoleObserver renders gallery events as steps. Each EventStarted
// begins the next queued step name.
type consoleObserver struct {
	steps *tui.Steps

	mu       sync.Mutex
	names    []string
	running  bool
	transfer *tui.Transfer // upload being tracked by the running step, if any
	failure  error         // last rejection reported through EventFailed
}

func newConsoleObserver(steps *tui.Steps, transfer *tui.Transfer, first string) *consoleObserver {
	return &consoleObserver{
		steps:    steps,
		names:    []string{first},
		transfer: transfer,
	}
}

func (o *consoleObserver) queue(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, name)
}

func (o *consoleObserver) Observe(ev gallery.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch ev.Type {
	case gallery.EventStarted:
		name := "Request"
		if len(o.names) > 0 {
			name, o.names = o.names[0], o.names[1:]
		}
		o.running = true
		o.steps.Start(name)
	case gallery.EventCompleted:
		o.running = false
		o.steps.Done(o.finishTransfer())
	case gallery.EventFailed:
		o.running = false
		o.finishTransfer()
		o.failure = ev.Err
		detail := ""
		if ev.Err != nil {
			detail = ev.Err.Error()
		}
		o.steps.Fail(detail)
	}
}

// finishTransfer stops tracking the upload and returns its summary.
func (o *consoleObserver) finishTransfer() string {
	t := o.transfer
	o.transfer = nil
	if t == nil {
		return ""
	}
	return t.Summary()
}

func (o *consoleObserver) tick() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running && o.transfer != nil {
		o.steps.Detail(o.transfer.Detail())
	}
}

// watch refreshes upload progress until the returned func is called.
func (o *consoleObserver) watch() (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(progressInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				o.tick()
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

// result turns the error of a gallery operation into the command's error.
// Rejections return the server's reason; a transport failure also fails
// the step that was running.
func (o *consoleObserver) result(err error) error {
	if err == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if errors.Is(err, gallery.ErrRejected) && o.failure != nil {
		return o.failure
	}
	if o.running {
		o.running = false
		o.transfer = nil
		o.steps.Fail(err.Error())
	}
	return err
}
