// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package clock

import (
	"errors"
	"fmt"

	"go.uber.org/atomic"
)

// ErrBusy is returned by Dispatcher.Set when a mode change is attempted
// while a profiling run is live (spec §4.1/§4.7: "refused while profiling
// is live").
var ErrBusy = errors.New("clock: measurement mode change refused while running")

// ErrInvalidMode is returned by Dispatcher.Set for a Mode value outside the
// enumerated set.
var ErrInvalidMode = errors.New("clock: invalid measurement mode")

// ErrUnsupportedMode is wrapped into the error Dispatcher.Set returns when
// a mode is valid but unavailable on the current platform (spec §6.3/§7,
// e.g. ProcessTime outside Linux), so hosts can distinguish that case from
// ErrInvalidMode via errors.Is(err, ErrUnsupportedMode).
var ErrUnsupportedMode = errors.New("clock: measurement mode unsupported on this platform")

// Dispatcher holds the active Clock and mediates mode switches. The engine
// owns one Dispatcher and flips its "busy" flag across Start/Stop; the
// Dispatcher itself never starts or stops a profiling run.
type Dispatcher struct {
	mode    Mode
	current Clock
	busy    atomic.Bool
}

// NewDispatcher returns a Dispatcher defaulting to WallTime, a mode that
// works on every platform.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{mode: WallTime, current: NewWallClock()}
}

// SetBusy marks the dispatcher as busy (a profiling run is live) or free.
// Called by the engine's Start/Stop, not by library users directly.
func (d *Dispatcher) SetBusy(busy bool) {
	d.busy.Store(busy)
}

// Mode returns the currently selected measurement mode.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// Clock returns the currently active Clock.
func (d *Dispatcher) Clock() Clock {
	return d.current
}

// Set selects a new measurement mode, constructing its Clock. It fails
// with ErrBusy if a run is live, ErrInvalidMode for an unknown Mode, or an
// error wrapping ErrUnsupportedMode if the mode isn't available on this
// platform (e.g. ProcessTime outside Linux).
func (d *Dispatcher) Set(mode Mode) error {
	if d.busy.Load() {
		return ErrBusy
	}
	clk, err := newClock(mode)
	if err != nil {
		return err
	}
	d.mode = mode
	d.current = clk
	return nil
}

// SetClock installs an already-constructed Clock directly, bypassing
// variant selection. Used by tests to inject deterministic clocks (e.g. a
// benbjohnson/clock.Mock-backed WallClock) and by hosts that already have
// a calibrated CPUClock they want to reuse.
func (d *Dispatcher) SetClock(mode Mode, clk Clock) error {
	if d.busy.Load() {
		return ErrBusy
	}
	d.mode = mode
	d.current = clk
	return nil
}

func newClock(mode Mode) (Clock, error) {
	switch mode {
	case ProcessTime:
		pc, err := NewProcessClock()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedMode, err)
		}
		return pc, nil
	case WallTime:
		return NewWallClock(), nil
	case CPUTime:
		return NewCPUClock(), nil
	case Allocations:
		return NewAllocationClock(), nil
	default:
		return nil, ErrInvalidMode
	}
}
