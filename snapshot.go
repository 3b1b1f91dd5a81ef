// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package callprof

import (
	"sort"

	"github.com/DataDog/callprof/bridge"
)

// Snapshot is the immutable view produced by Engine.Stop: for every task
// observed during the run, every method record (across recursion depths),
// each carrying its own parent/child edge tables. Snapshot owns everything
// it holds — it borrows nothing from the engine, which releases its
// registry as soon as the snapshot is built (spec §4.6, §5).
type Snapshot struct {
	tasks map[bridge.TaskHandle][]*MethodRecord
}

// newSnapshot walks the registry and takes ownership of its task states'
// method tables, sorted per the public ordering rule (spec §6.2).
func newSnapshot(reg *registry) *Snapshot {
	s := &Snapshot{tasks: make(map[bridge.TaskHandle][]*MethodRecord, len(reg.tasks))}
	for handle, task := range reg.tasks {
		methods := task.Methods()
		SortMethods(methods)
		s.tasks[handle] = methods
	}
	return s
}

// Tasks returns, for every task observed, its method records.
func (s *Snapshot) Tasks() map[bridge.TaskHandle][]*MethodRecord {
	return s.tasks
}

// Task returns the method records for a single task, or nil if that task
// was never observed.
func (s *Snapshot) Task(handle bridge.TaskHandle) []*MethodRecord {
	return s.tasks[handle]
}

// SortMethods orders records per spec §6.2: a record with Called == 0
// compares greater than any called record (sinks to the bottom);
// otherwise records compare by TotalTime descending. Ties are equal.
//
// One source revision of the comparator this is modeled on returned -11
// instead of -1 to place an unrelated "toplevel" entry first; that is
// treated as a typo in the original and not reproduced here (see
// DESIGN.md).
func SortMethods(methods []*MethodRecord) {
	sort.SliceStable(methods, func(i, j int) bool {
		a, b := methods[i], methods[j]
		if (a.Called == 0) != (b.Called == 0) {
			return a.Called != 0
		}
		return a.TotalTime > b.TotalTime
	})
}
