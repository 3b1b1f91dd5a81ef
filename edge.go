// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package callprof

import "github.com/DataDog/callprof/clock"

// EdgeRecord is the persistent aggregate for a directed caller/callee
// relation between two method records. Each side of the relation owns its
// own EdgeRecord — one hangs off the caller's Children table, a distinct
// one off the callee's Parents table — and the engine updates both in
// lockstep (spec §4.5.8 step 6).
type EdgeRecord struct {
	Target *MethodRecord

	Called    int64
	TotalTime int64
	SelfTime  int64
	WaitTime  int64

	// Line is the source line in the caller at which the call occurred.
	Line int
}

// ChildrenTime mirrors MethodRecord.ChildrenTime for an edge.
func (e *EdgeRecord) ChildrenTime() int64 {
	return e.TotalTime - e.SelfTime - e.WaitTime
}

// TotalTimeSeconds converts TotalTime using clk.
func (e *EdgeRecord) TotalTimeSeconds(clk clock.Clock) float64 {
	return clk.ToSeconds(e.TotalTime)
}

// SelfTimeSeconds converts SelfTime using clk.
func (e *EdgeRecord) SelfTimeSeconds(clk clock.Clock) float64 {
	return clk.ToSeconds(e.SelfTime)
}

// WaitTimeSeconds converts WaitTime using clk.
func (e *EdgeRecord) WaitTimeSeconds(clk clock.Clock) float64 {
	return clk.ToSeconds(e.WaitTime)
}

// ChildrenTimeSeconds converts ChildrenTime using clk.
func (e *EdgeRecord) ChildrenTimeSeconds(clk clock.Clock) float64 {
	return clk.ToSeconds(e.ChildrenTime())
}

// accumulate folds one completed frame's timing into the edge, incrementing
// Called and the three raw sums, and recording the call site (spec
// §4.5.8 step 6).
func (e *EdgeRecord) accumulate(total, self, wait int64, line int) {
	e.Called++
	e.TotalTime += total
	e.SelfTime += self
	e.WaitTime += wait
	e.Line = line
}
