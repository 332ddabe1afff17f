// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package throttle limits the rate at which a client dispatches
// attempts, using a token bucket from golang.org/x/time/rate.
package throttle
