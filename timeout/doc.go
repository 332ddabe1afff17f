// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout defines policies for setting the per-attempt timeout
// of a request chain. A generic interface for timeout policies is
// provided, Policy, along with built-in policies and constructors.
//
// Attempt timeouts are terminal. An attempt that times out is aborted,
// and the chain ends with a "socket hang up" error.
package timeout
