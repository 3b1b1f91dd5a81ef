// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package callprof

import "github.com/DataDog/callprof/clock"

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithMeasurementMode selects the initial measurement mode. Defaults to
// clock.WallTime, a mode that works on every platform.
func WithMeasurementMode(mode clock.Mode) Option {
	return func(e *Engine) {
		e.initialMode = mode
	}
}

// WithSelfSentinel registers the value the engine compares incoming
// events' SelfRef against to filter out the profiler's own entry points
// (spec §4.5.3).
func WithSelfSentinel(sentinel any) Option {
	return func(e *Engine) {
		e.selfSentinel = sentinel
	}
}

// WithEventTrace enables per-event Debug-level logging, mirroring the
// original ruby-prof extension's PROF_MODE stderr trace (one line per
// event, gated behind a debug flag rather than always on).
func WithEventTrace(enabled bool) Option {
	return func(e *Engine) {
		e.traceEvents = enabled
	}
}
