// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gallery publishes packages to, and retracts packages from, a
// NuGet-style package gallery over HTTP.
//
// An Endpoint wraps a configured source URL. The first request made through
// an Endpoint resolves the gallery's real base URL by following redirects;
// the result is memoized for the lifetime of the Endpoint.
//
// Request URLs are derived from the base URL. A bare host such as
// https://gallery.example.com/ is treated as a gallery root and the package
// service lives below it:
//
//	PUT    https://gallery.example.com/api/v2/package/
//	DELETE https://gallery.example.com/api/v2/package/<id>/<version>
//
// A base URL with a non-root path is treated as the package service itself
// and relative paths are appended to it directly.
//
// Progress is reported to an Observer. Every operation emits exactly one
// EventStarted followed by exactly one terminal event, EventCompleted or
// EventFailed. A request the server answered but did not accept is reported
// as EventFailed carrying a *RejectionError. A request that never obtained a
// response (DNS failure, refused connection, timeout) emits no terminal
// event; its error is returned to the caller instead.
package gallery
