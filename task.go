// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package callprof

import "github.com/DataDog/callprof/bridge"

// TaskState holds everything the engine tracks for one logical task of the
// host's cooperative scheduler: its own call stack, its own method table
// (methods are per-task, per spec §2 C3), and the timestamp it was last
// suspended at.
type TaskState struct {
	TaskID bridge.TaskHandle

	stack   *stack
	methods map[uint64]*MethodRecord

	// root is a synthetic MethodRecord standing in for whatever was
	// already running when profiling started (spec §4.5.8 step 7's
	// "outermost synthetic top"). It is pushed once as the permanent
	// floor of stack and never popped, never entered in methods, and
	// never visible in a Snapshot. Its only purpose is to give the fold
	// described there somewhere real to land that isn't also a frame
	// the engine will credit again through its own RETURN.
	root *MethodRecord

	// LastSwitchTime is the clock value recorded when this task was last
	// suspended; 0 while the task is the active one, and 0 when the task
	// is newly created (spec §3, §4.5.5).
	LastSwitchTime int64
}

func newTaskState(task bridge.TaskHandle) *TaskState {
	root := &MethodRecord{}
	root.Base = root

	t := &TaskState{
		TaskID:  task,
		stack:   newStack(),
		methods: make(map[uint64]*MethodRecord),
		root:    root,
	}
	rootFrame := t.stack.Push()
	rootFrame.Method = root
	return t
}

// Methods returns every method record observed for this task, across all
// recursion depths, in no particular order. Snapshot sorts these per the
// public ordering rule before exposing them.
func (t *TaskState) Methods() []*MethodRecord {
	out := make([]*MethodRecord, 0, len(t.methods))
	for _, m := range t.methods {
		out = append(out, m)
	}
	return out
}

// registry is the mapping from task handle to task state (spec §2 C5,
// §4.4). It is exclusively owned and mutated by the engine; no locking,
// per the single-threaded cooperative model (spec §5).
type registry struct {
	tasks map[bridge.TaskHandle]*TaskState
}

func newRegistry() *registry {
	return &registry{tasks: make(map[bridge.TaskHandle]*TaskState)}
}

// getOrCreate returns the TaskState for task, creating one with an empty
// method table and a stack holding only its root frame if this is the
// first event seen for it.
func (r *registry) getOrCreate(task bridge.TaskHandle) *TaskState {
	if t, ok := r.tasks[task]; ok {
		return t
	}
	t := newTaskState(task)
	r.tasks[task] = t
	return t
}
