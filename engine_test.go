// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package callprof

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/callprof/bridge"
)

// fakeClock is a deterministic clock.Clock: raw values are exactly the
// timestamps a test sets via set, and ToSeconds is the identity, so
// scenario assertions can compare against the literal @t=N values from
// spec.md directly.
type fakeClock struct {
	t int64
}

func (f *fakeClock) Now() int64                  { return f.t }
func (f *fakeClock) ToSeconds(raw int64) float64 { return float64(raw) }
func (f *fakeClock) set(t int64)                 { f.t = t }

type fakeCap struct {
	proxies map[bridge.ClassHandle]bridge.ClassHandle
}

func (c *fakeCap) IsIncludedModuleProxy(class bridge.ClassHandle) bool {
	_, ok := c.proxies[class]
	return ok
}

func (c *fakeCap) ResolveRealClass(class bridge.ClassHandle) bridge.ClassHandle {
	return c.proxies[class]
}

// testHarness bundles an Engine with the fake clock driving it, and fires
// events at explicit timestamps the way the scenarios in spec.md §8 are
// written ("CALL A @t=0").
type testHarness struct {
	t   *testing.T
	e   *Engine
	clk *fakeClock
}

func newHarness(t *testing.T, opts ...Option) *testHarness {
	t.Helper()
	fc := &fakeClock{}
	e := New(&fakeCap{proxies: map[bridge.ClassHandle]bridge.ClassHandle{}}, opts...)
	require.NoError(t, e.dispatcher.SetClock(e.dispatcher.Mode(), fc))
	require.NoError(t, e.Start())
	return &testHarness{t: t, e: e, clk: fc}
}

func (h *testHarness) fire(at int64, ev bridge.Event) {
	h.clk.set(at)
	h.e.OnEvent(ev)
}

func (h *testHarness) call(at int64, task, class, method any, line int) {
	h.fire(at, bridge.Event{Kind: bridge.Call, Task: task, ClassHandle: class, MethodID: method, SourceLine: line})
}

func (h *testHarness) ret(at int64, task any) {
	h.fire(at, bridge.Event{Kind: bridge.Return, Task: task})
}

func (h *testHarness) line(at int64, task any, ln int) {
	h.fire(at, bridge.Event{Kind: bridge.Line, Task: task, SourceLine: ln})
}

func (h *testHarness) stop() *Snapshot {
	h.t.Helper()
	snap, err := h.e.Stop()
	require.NoError(h.t, err)
	return snap
}

func methodOf(t *testing.T, snap *Snapshot, task any, class, method any, depth int) *MethodRecord {
	t.Helper()
	for _, m := range snap.Task(task) {
		if m.ClassHandle == class && m.MethodID == method && m.Depth == depth {
			return m
		}
	}
	require.Failf(t, "method not found", "class=%v method=%v depth=%d", class, method, depth)
	return nil
}

// Scenario A — straight line (spec §8).
func TestScenarioA_StraightLine(t *testing.T) {
	h := newHarness(t)
	h.call(0, "T", "C", "A", 1)
	h.call(10, "T", "C", "B", 1)
	h.ret(30, "T")
	h.ret(50, "T")
	snap := h.stop()

	a := methodOf(t, snap, "T", "C", "A", 0)
	b := methodOf(t, snap, "T", "C", "B", 0)

	assert.EqualValues(t, 1, a.Called)
	assert.EqualValues(t, 50, a.TotalTime)
	assert.EqualValues(t, 30, a.SelfTime)
	assert.EqualValues(t, 20, a.ChildrenTime())

	assert.EqualValues(t, 1, b.Called)
	assert.EqualValues(t, 20, b.TotalTime)
	assert.EqualValues(t, 20, b.SelfTime)

	childEdge := a.Children[b.Key()]
	require.NotNil(t, childEdge)
	assert.EqualValues(t, 1, childEdge.Called)
	assert.EqualValues(t, 20, childEdge.TotalTime)

	parentEdge := b.Parents[a.Key()]
	require.NotNil(t, parentEdge)
	assert.EqualValues(t, 1, parentEdge.Called)
	assert.EqualValues(t, 20, parentEdge.TotalTime)
}

// Scenario B — simple recursion (spec §8).
func TestScenarioB_SimpleRecursion(t *testing.T) {
	h := newHarness(t)
	h.call(0, "T", "C", "F", 1)
	h.call(5, "T", "C", "F", 1)
	h.ret(15, "T")
	h.ret(25, "T")
	snap := h.stop()

	f0 := methodOf(t, snap, "T", "C", "F", 0)
	f1 := methodOf(t, snap, "T", "C", "F", 1)

	// spec.md's own prose for this scenario states self=10, children=15;
	// but self is defined as total - child_time - wait_time (spec §4.5.8
	// step 2), and F0's child_time can only grow from F1's single return
	// crediting it 10, so self=25-10-0=15 and children=10 instead — the
	// prose has the two swapped, the same kind of slip as Scenario C. See
	// DESIGN.md.
	assert.EqualValues(t, 1, f0.Called)
	assert.EqualValues(t, 25, f0.TotalTime)
	assert.EqualValues(t, 15, f0.SelfTime)
	assert.EqualValues(t, 10, f0.ChildrenTime())

	assert.EqualValues(t, 1, f1.Called)
	assert.EqualValues(t, 10, f1.TotalTime)
	assert.EqualValues(t, 10, f1.SelfTime)
	assert.EqualValues(t, 0, f1.ChildrenTime())

	assert.Same(t, f0, f1.Base)
	assert.Same(t, f0, f0.Base)
	assert.EqualValues(t, 0, f0.ActiveFrames)
}

// Scenario C — two cooperating tasks (spec §8).
func TestScenarioC_TwoCooperatingTasks(t *testing.T) {
	h := newHarness(t)
	h.call(0, "T1", "C", "A", 1)
	h.call(3, "T2", "C", "B", 1)
	h.ret(8, "T2")
	h.ret(12, "T1")
	snap := h.stop()

	a := methodOf(t, snap, "T1", "C", "A", 0)
	b := methodOf(t, snap, "T2", "C", "B", 0)

	// spec.md's own prose for this scenario states self=9, wait=3; tracing
	// the context-switch arithmetic it's distilled from (ext/ruby_prof.c's
	// prof_event_hook) against these exact timestamps gives self=3, wait=9
	// instead — the prose has the two swapped. See DESIGN.md.
	assert.EqualValues(t, 12, a.TotalTime)
	assert.EqualValues(t, 3, a.SelfTime)
	assert.EqualValues(t, 9, a.WaitTime)

	assert.EqualValues(t, 5, b.TotalTime)
	assert.EqualValues(t, 5, b.SelfTime)
	assert.EqualValues(t, 0, b.WaitTime)
}

// Scenario D — return without call (spec §8).
func TestScenarioD_ReturnWithoutCall(t *testing.T) {
	h := newHarness(t)
	h.ret(5, "T")
	snap := h.stop()

	// The task may be absent entirely, or present with no method
	// records; either satisfies "no crash, nothing recorded".
	assert.Empty(t, snap.Task("T"))
}

// Scenario E — line updates call-site (spec §8).
func TestScenarioE_LineUpdatesCallSite(t *testing.T) {
	h := newHarness(t)
	h.call(0, "T", "C", "A", 1)
	h.line(2, "T", 7)
	h.call(3, "T", "C", "B", 1)
	h.ret(4, "T")
	h.ret(5, "T")
	snap := h.stop()

	a := methodOf(t, snap, "T", "C", "A", 0)
	b := methodOf(t, snap, "T", "C", "B", 0)

	edge := a.Children[b.Key()]
	require.NotNil(t, edge)
	assert.Equal(t, 7, edge.Line)
}

// Scenario F — self-event filter (spec §8).
func TestScenarioF_SelfEventFilter(t *testing.T) {
	sentinel := "profiler-self"
	h := newHarness(t, WithSelfSentinel(sentinel))

	h.clk.set(0)
	h.e.OnEvent(bridge.Event{Kind: bridge.Call, Task: "T", ClassHandle: "C", MethodID: "A", SourceLine: 1, SelfRef: sentinel})
	snap := h.stop()

	assert.Empty(t, snap.Task("T"))
}

func TestIncludedModuleProxyNormalization(t *testing.T) {
	fc := &fakeClock{}
	e := New(&fakeCap{proxies: map[bridge.ClassHandle]bridge.ClassHandle{"Proxy": "Real"}})
	require.NoError(t, e.dispatcher.SetClock(e.dispatcher.Mode(), fc))
	require.NoError(t, e.Start())

	fc.set(0)
	e.OnEvent(bridge.Event{Kind: bridge.Call, Task: "T", ClassHandle: "Proxy", MethodID: "A", SourceLine: 1})
	fc.set(10)
	e.OnEvent(bridge.Event{Kind: bridge.Return, Task: "T"})

	snap, err := e.Stop()
	require.NoError(t, err)

	real := methodOf(t, snap, "T", "Real", "A", 0)
	assert.EqualValues(t, 10, real.TotalTime)
}

func TestReentrantEventDropped(t *testing.T) {
	h := newHarness(t)
	h.e.inHook.Store(true)
	h.call(0, "T", "C", "A", 1)
	h.e.inHook.Store(false)

	snap := h.stop()
	assert.Empty(t, snap.Task("T"))
}

func TestOrphanReturnAfterBalancedCallDropsSilently(t *testing.T) {
	h := newHarness(t)
	h.call(0, "T", "C", "A", 1)
	h.ret(5, "T")
	// Extra, unmatched return: must not panic, must not corrupt state.
	h.ret(6, "T")
	snap := h.stop()

	a := methodOf(t, snap, "T", "C", "A", 0)
	assert.EqualValues(t, 1, a.Called)
}

// Universal invariant 1 (spec §8): self_time >= 0 and
// total_time >= self_time + wait_time, with equality when children_time == 0.
func TestInvariantSelfAndTotalTime(t *testing.T) {
	h := newHarness(t)
	h.call(0, "T", "C", "A", 1)
	h.call(1, "T", "C", "B", 1)
	h.ret(4, "T")
	h.ret(10, "T")
	snap := h.stop()

	for _, m := range snap.Task("T") {
		assert.GreaterOrEqual(t, m.SelfTime, int64(0))
		assert.GreaterOrEqual(t, m.TotalTime, m.SelfTime+m.WaitTime)
		if m.ChildrenTime() == 0 {
			assert.Equal(t, m.TotalTime, m.SelfTime+m.WaitTime)
		}
	}
}

// Universal invariant 2 (spec §8): after Stop, every base record's
// ActiveFrames is 0.
func TestInvariantActiveFramesZeroAfterStop(t *testing.T) {
	h := newHarness(t)
	h.call(0, "T", "C", "F", 1)
	h.call(1, "T", "C", "F", 1)
	h.call(2, "T", "C", "F", 1)
	h.ret(3, "T")
	h.ret(4, "T")
	h.ret(5, "T")
	snap := h.stop()

	for _, m := range snap.Task("T") {
		assert.EqualValues(t, 0, m.Base.ActiveFrames)
	}
}

// Universal invariant 5 (spec §8): Stop is idempotent-safe — a second Stop
// without an intervening Start fails with ErrNotRunning, and the first
// snapshot is unaffected.
func TestStopTwiceFails(t *testing.T) {
	h := newHarness(t)
	h.call(0, "T", "C", "A", 1)
	h.ret(1, "T")
	snap1 := h.stop()

	snap2, err := h.e.Stop()
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.Nil(t, snap2)

	a := methodOf(t, snap1, "T", "C", "A", 0)
	assert.EqualValues(t, 1, a.Called)
}

func TestStartTwiceFails(t *testing.T) {
	h := newHarness(t)
	err := h.e.Start()
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestOnEventNoOpWhenNotRunning(t *testing.T) {
	e := New(&fakeCap{})
	assert.NotPanics(t, func() {
		e.OnEvent(bridge.Event{Kind: bridge.Call, Task: "T", ClassHandle: "C", MethodID: "A"})
	})
	assert.False(t, e.Running())
}
