// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

//go:build linux

package clock

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// ClockTicks returns the number of jiffies (clock ticks) per second used to
// convert CPU time fields to seconds. It checks the CALLPROF_CLK_TCK env
// override first (useful for tests that want a predictable divisor without
// faking the kernel), then falls back to 100, the near-universal default on
// Linux (the same env-var-then-100 pattern as
// ja7ad-consumption/pkg/system/proc.ClockTicks).
func ClockTicks() int64 {
	if v, err := strconv.ParseInt(os.Getenv("CALLPROF_CLK_TCK"), 10, 64); err == nil && v > 0 {
		return v
	}
	return 100
}

// ProcessClock measures the process's own CPU time (user+system jiffies)
// via the times(2) syscall (golang.org/x/sys/unix.Times), the same
// utime+stime pair ja7ad-consumption's pkg/system/proc.ReadProcStat parses
// out of /proc/<pid>/stat for an arbitrary pid.
type ProcessClock struct {
	ticks int64
}

// NewProcessClock returns a ProcessClock, or an error if the times(2)
// syscall is unavailable (e.g. a restrictive sandbox).
func NewProcessClock() (*ProcessClock, error) {
	var tms unix.Tms
	if _, err := unix.Times(&tms); err != nil {
		return nil, err
	}
	return &ProcessClock{ticks: ClockTicks()}, nil
}

// Now returns the process's cumulative user+system CPU jiffies.
func (p *ProcessClock) Now() int64 {
	var tms unix.Tms
	if _, err := unix.Times(&tms); err != nil {
		return 0
	}
	return int64(tms.Utime) + int64(tms.Stime)
}

// ToSeconds converts jiffies to seconds using the clock-ticks-per-second
// divisor captured at construction time.
func (p *ProcessClock) ToSeconds(raw int64) float64 {
	if p.ticks == 0 {
		return 0
	}
	return float64(raw) / float64(p.ticks)
}
