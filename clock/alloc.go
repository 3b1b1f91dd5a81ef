// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package clock

import "runtime"

// AllocationClock counts process-wide heap allocations. The host interpreter
// this core targets does not expose a language-level allocation counter
// through bridge.Capability (spec §6.1), so this variant uses the Go
// runtime's own cumulative Mallocs count as the closest available stand-in:
// it is monotonic and integral, which is all the engine requires.
type AllocationClock struct{}

// NewAllocationClock returns an AllocationClock. It is always available,
// unlike ProcessTime.
func NewAllocationClock() *AllocationClock {
	return &AllocationClock{}
}

// Now returns the cumulative number of heap objects allocated so far.
func (AllocationClock) Now() int64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return int64(stats.Mallocs)
}

// ToSeconds is the identity: allocation counts carry no time unit, and
// reporters that ask for "seconds" from this mode receive raw counts.
func (AllocationClock) ToSeconds(raw int64) float64 {
	return float64(raw)
}
