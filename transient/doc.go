// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies connection-level errors encountered
// while dispatching a request attempt: timeouts, refused and reset
// connections, unresolvable hosts and truncated responses. It also
// constructs the "socket hang up" error reported when an attempt is
// aborted.
//
// Package transient depends only on the standard library, so it brings
// no significant dependencies when imported as a standalone package.
package transient
