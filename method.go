// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package callprof

import (
	"github.com/DataDog/callprof/bridge"
	"github.com/DataDog/callprof/clock"
)

// MethodRecord is the persistent aggregate for a specific (class, method,
// recursion-depth) triple observed in one task. Depth-0 records are the
// "base" for every deeper-depth record of the same (class, method); see
// Base.
type MethodRecord struct {
	ClassHandle bridge.ClassHandle
	MethodID    bridge.MethodID
	Depth       int

	// SourceFile and Line are set at first observation and never mutated
	// afterward (spec §3). Both are zero for C_CALL-originated records.
	SourceFile string
	Line       int

	Called    int64
	TotalTime int64
	SelfTime  int64
	WaitTime  int64

	Parents  map[uint64]*EdgeRecord
	Children map[uint64]*EdgeRecord

	// ActiveFrames counts live frames on the owning task's stack whose
	// method's Base is this record. Only meaningful on the depth-0
	// (Base) record; tracked there regardless of which depth's frame is
	// actually executing (spec §3 invariant on active_frames).
	ActiveFrames int64

	// Base is the depth-0 record for the same (class, method); it is
	// self-referential when Depth == 0. Non-owning back-reference: Base
	// never forms a reference cycle with Parents/Children maps since it
	// points within the same task's method table, not through an edge.
	Base *MethodRecord

	key uint64
}

func newMethodRecord(key methodKey, hash uint64, base *MethodRecord) *MethodRecord {
	m := &MethodRecord{
		ClassHandle: key.class,
		MethodID:    key.id,
		Depth:       key.depth,
		Parents:     make(map[uint64]*EdgeRecord),
		Children:    make(map[uint64]*EdgeRecord),
		key:         hash,
	}
	if base != nil {
		m.Base = base
	} else {
		m.Base = m
	}
	return m
}

// ChildrenTime is the derived time spent in callees: total - self - wait
// (spec §3 invariant: children_time >= 0 by construction).
func (m *MethodRecord) ChildrenTime() int64 {
	return m.TotalTime - m.SelfTime - m.WaitTime
}

// TotalTimeSeconds converts TotalTime using clk.
func (m *MethodRecord) TotalTimeSeconds(clk clock.Clock) float64 {
	return clk.ToSeconds(m.TotalTime)
}

// SelfTimeSeconds converts SelfTime using clk.
func (m *MethodRecord) SelfTimeSeconds(clk clock.Clock) float64 {
	return clk.ToSeconds(m.SelfTime)
}

// WaitTimeSeconds converts WaitTime using clk.
func (m *MethodRecord) WaitTimeSeconds(clk clock.Clock) float64 {
	return clk.ToSeconds(m.WaitTime)
}

// ChildrenTimeSeconds converts ChildrenTime using clk.
func (m *MethodRecord) ChildrenTimeSeconds(clk clock.Clock) float64 {
	return clk.ToSeconds(m.ChildrenTime())
}

// Key returns the 64-bit numeric key this record is stored under.
func (m *MethodRecord) Key() uint64 {
	return m.key
}

// upsertChild returns the edge record for target in m.Children, creating
// it if absent.
func (m *MethodRecord) upsertChild(target *MethodRecord) *EdgeRecord {
	return upsertEdge(m.Children, target)
}

// upsertParent returns the edge record for target in m.Parents, creating
// it if absent.
func (m *MethodRecord) upsertParent(target *MethodRecord) *EdgeRecord {
	return upsertEdge(m.Parents, target)
}

func upsertEdge(table map[uint64]*EdgeRecord, target *MethodRecord) *EdgeRecord {
	e, ok := table[target.key]
	if !ok {
		e = &EdgeRecord{Target: target}
		table[target.key] = e
	}
	return e
}
