// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package clock

import (
	"time"

	"go.uber.org/atomic"
)

// calibrationWindow is the OS sleep used while calibrating the cycle
// counter's frequency, matching the 500ms window the original measurement
// extension used (get_cpu_frequency in ext/measure_cpu_time.c).
const calibrationWindow = 500 * time.Millisecond

// Sleeper abstracts the OS sleep performed during calibration so tests can
// verify the calibration arithmetic without actually blocking for 500ms.
type Sleeper func(time.Duration)

// CPUClock measures high-resolution CPU cycles via Counter (a pure-Go
// monotonic nanosecond stand-in for a hardware cycle counter; see
// counter.go) and converts to seconds using
// a calibrated frequency. Frequency is calibrated lazily on first use
// unless set explicitly with SetFrequency.
type CPUClock struct {
	frequency atomic.Float64
	sleep     Sleeper
	counter   func() int64
}

// NewCPUClock returns a CPUClock with no frequency calibrated yet; the
// first call to ToSeconds triggers calibration using time.Sleep.
func NewCPUClock() *CPUClock {
	return &CPUClock{sleep: time.Sleep, counter: Counter}
}

// Now returns the raw cycle count.
func (c *CPUClock) Now() int64 {
	return c.counter()
}

// Frequency returns the calibrated cycles-per-second, calibrating first if
// needed.
func (c *CPUClock) Frequency() float64 {
	if f := c.frequency.Load(); f != 0 {
		return f
	}
	c.calibrate()
	return c.frequency.Load()
}

// SetFrequency overrides the calibrated frequency (Hz). Exposed so a host
// can supply a known-accurate value (e.g. from /proc/cpuinfo) instead of
// relying on the 500ms self-calibration.
func (c *CPUClock) SetFrequency(hz float64) {
	c.frequency.Store(hz)
}

// ToSeconds divides a cycle count by the calibrated frequency.
func (c *CPUClock) ToSeconds(raw int64) float64 {
	hz := c.Frequency()
	if hz == 0 {
		return 0
	}
	return float64(raw) / hz
}

// calibrate reads the counter, sleeps for calibrationWindow, reads again,
// and derives frequency = 2*(y-x) — the exact formula
// ext/measure_cpu_time.c's get_cpu_frequency uses for a 500ms window
// (the factor of 2 scales the half-second sample up to a full second).
func (c *CPUClock) calibrate() {
	x := c.counter()
	c.sleep(calibrationWindow)
	y := c.counter()
	c.frequency.Store(2 * float64(y-x))
}
