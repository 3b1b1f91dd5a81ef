// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package clock

import "github.com/benbjohnson/clock"

// WallClock measures wall time in nanoseconds. It wraps a
// github.com/benbjohnson/clock.Clock so tests can substitute clock.NewMock()
// and advance time deterministically (the same pattern the corpus uses for
// every other time-dependent unit test) instead of depending on real sleeps.
type WallClock struct {
	src clock.Clock
}

// NewWallClock returns a WallClock backed by the real system clock.
func NewWallClock() *WallClock {
	return &WallClock{src: clock.New()}
}

// NewWallClockWithSource returns a WallClock backed by src, typically a
// *clock.Mock in tests.
func NewWallClockWithSource(src clock.Clock) *WallClock {
	return &WallClock{src: src}
}

// Now returns the current time as nanoseconds since the Unix epoch.
func (w *WallClock) Now() int64 {
	return w.src.Now().UnixNano()
}

// ToSeconds converts a nanosecond duration (or difference of two Now()
// values) to seconds.
func (w *WallClock) ToSeconds(raw int64) float64 {
	return float64(raw) / 1e9
}
