// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package clock

import "time"

// Counter returns a monotonic, integral counter value for CPUClock.
//
// The original measurement this variant is modeled on reads a hardware
// cycle counter directly (RDTSC on x86, the time-base register on ppc; see
// ext/measure_cpu_time.c). Reading that register portably requires either
// cgo or per-architecture assembly stubs, which this pure-Go core avoids.
// Instead Counter reads the Go runtime's monotonic clock reading in
// nanoseconds: it is still monotonic and integral, which is all CPUClock's
// calibration (frequency = 2*(y-x) over a timed window) actually requires,
// and the resulting "frequency" is simply ~1e9 regardless of host CPU —
// callers that need true TSC-derived cycles should call SetFrequency with
// a value obtained from the host.
func Counter() int64 {
	return int64(time.Since(counterEpoch))
}

// counterEpoch anchors Counter's readings so time.Since measures against the
// runtime's monotonic clock rather than the adjustable wall clock.
var counterEpoch = time.Now()
