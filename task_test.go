// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package callprof

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskStateIsEmpty(t *testing.T) {
	ts := newTaskState("T")
	assert.Equal(t, "T", ts.TaskID)
	assert.EqualValues(t, 0, ts.LastSwitchTime)
	assert.Empty(t, ts.Methods())

	// The stack is never truly empty: it is permanently floored by a
	// synthetic root frame (see DESIGN.md's double-counting fix record)
	// that is never entered in methods and never popped.
	require.Equal(t, 1, ts.stack.Len())
	top, ok := ts.stack.Peek()
	require.True(t, ok)
	assert.Same(t, ts.root, top.Method)
}

func TestTaskStateMethodsReturnsAllRecords(t *testing.T) {
	ts := newTaskState("T")
	k1 := methodKey{class: "C", id: "A", depth: 0}
	k2 := methodKey{class: "C", id: "B", depth: 0}
	ts.methods[k1.hash()] = newMethodRecord(k1, k1.hash(), nil)
	ts.methods[k2.hash()] = newMethodRecord(k2, k2.hash(), nil)

	got := ts.Methods()
	assert.Len(t, got, 2)
}

func TestRegistryGetOrCreateReusesExistingState(t *testing.T) {
	reg := newRegistry()
	first := reg.getOrCreate("T")
	first.LastSwitchTime = 5

	second := reg.getOrCreate("T")
	require.Same(t, first, second)
	assert.EqualValues(t, 5, second.LastSwitchTime)
}

func TestRegistryGetOrCreateIsolatesDistinctTasks(t *testing.T) {
	reg := newRegistry()
	a := reg.getOrCreate("A")
	b := reg.getOrCreate("B")
	assert.NotSame(t, a, b)
	assert.Len(t, reg.tasks, 2)
}
