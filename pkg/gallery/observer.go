// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gallery

import (
	"fmt"
	"sync"
)

// EventType identifies the stage of an operation an Event reports.
type EventType int

const (
	EventStarted   EventType = iota // request about to be sent
	EventCompleted                  // response accepted
	EventFailed                     // response rejected; Event.Err is a *RejectionError
)

func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is a single progress notification.
type Event struct {
	Type EventType
	// Progress is 0 for EventStarted. It carries no other meaning.
	Progress int
	// Err is set for EventFailed.
	Err error
}

// Observer receives progress events for gallery operations. Observe is
// called synchronously from the goroutine running the operation.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) {
	f(ev)
}

type discardObserver struct{}

func (discardObserver) Observe(Event) {}

// Recorder is an Observer that keeps every event it sees.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in arrival order.
func (r *Recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		types = append(types, ev.Type)
	}
	return types
}

// Failures returns the errors carried by recorded EventFailed events.
func (r *Recorder) Failures() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, ev := range r.events {
		if ev.Type == EventFailed {
			errs = append(errs, ev.Err)
		}
	}
	return errs
}
