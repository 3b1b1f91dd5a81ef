// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package callprof

import "errors"

// Sentinel errors raised synchronously from the public API (spec §7).
// Internal event handling never raises: it records or drops.
var (
	// ErrAlreadyRunning is returned by Start when a registry already
	// exists.
	ErrAlreadyRunning = errors.New("callprof: already running")

	// ErrNotRunning is returned by Stop when no registry exists.
	ErrNotRunning = errors.New("callprof: not running")
)
