// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package callprof is a call-graph profiler core for a dynamic-language
// interpreter: an event-driven accounting engine that turns a stream of
// method-entry/return/line/context-switch events into, on demand, per-task
// invocation counts, total/self/wait time, and caller/callee edge
// aggregates. It does not sample, does not persist results, and assumes
// its host serializes event delivery onto a single OS thread (the typical
// cooperative-task interpreter model) — see Engine.OnEvent.
package callprof

import (
	"go.uber.org/atomic"

	"github.com/DataDog/callprof/bridge"
	"github.com/DataDog/callprof/clock"
	"github.com/DataDog/callprof/internal/log"
)

// Engine is the profiler core: one per host process, constructed once via
// New and started/stopped around the window the host wants profiled.
// Engine is not safe for concurrent OnEvent calls — the host must
// serialize event delivery, per the cooperative single-thread model this
// core assumes (spec §5); OnEvent itself only defends against reentrancy
// from within its own call stack (spec §4.5.2), not against true
// concurrent callers.
type Engine struct {
	cap        bridge.Capability
	dispatcher *clock.Dispatcher

	reg      *registry
	lastTask *TaskState

	inHook  atomic.Bool
	running atomic.Bool

	selfSentinel any
	initialMode  clock.Mode
	traceEvents  bool
}

// New constructs an Engine bound to cap, the host's capability
// implementation. The engine does not start accounting until Start is
// called.
func New(cap bridge.Capability, opts ...Option) *Engine {
	e := &Engine{
		cap:         cap,
		dispatcher:  clock.NewDispatcher(),
		initialMode: clock.WallTime,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.initialMode != clock.WallTime {
		// best effort: if the requested mode isn't available on this
		// platform, fall back silently to WallTime rather than failing
		// construction; SetMeasurement surfaces the same error later if
		// the host retries explicitly.
		if err := e.dispatcher.Set(e.initialMode); err != nil {
			e.initialMode = clock.WallTime
		}
	}
	return e
}

// Running reports whether a profiling run is currently live.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Start begins a new profiling run: a fresh task registry is allocated and
// OnEvent begins accounting. Fails with ErrAlreadyRunning if a run is
// already live.
func (e *Engine) Start() error {
	if e.running.Load() {
		return ErrAlreadyRunning
	}
	e.reg = newRegistry()
	e.lastTask = nil
	e.dispatcher.SetBusy(true)
	e.running.Store(true)
	return nil
}

// Stop ends the current run and returns an immutable snapshot of
// everything accumulated. The engine releases its own registry
// immediately afterward; a subsequent Start allocates fresh state. Fails
// with ErrNotRunning if no run is live.
func (e *Engine) Stop() (*Snapshot, error) {
	if !e.running.Load() {
		return nil, ErrNotRunning
	}
	snap := newSnapshot(e.reg)
	e.reg = nil
	e.lastTask = nil
	e.running.Store(false)
	e.dispatcher.SetBusy(false)
	return snap, nil
}

// SetMeasurement selects the active measurement mode. Fails with
// clock.ErrBusy while a run is live, clock.ErrInvalidMode for an unknown
// mode, or an error wrapping clock.ErrUnsupportedMode if the mode isn't
// available on this platform.
func (e *Engine) SetMeasurement(mode clock.Mode) error {
	return e.dispatcher.Set(mode)
}

// Measurement returns the active measurement mode.
func (e *Engine) Measurement() clock.Mode {
	return e.dispatcher.Mode()
}

// Clock exposes the active Clock, primarily so callers can convert a
// Snapshot's raw sums to seconds.
func (e *Engine) Clock() clock.Clock {
	return e.dispatcher.Clock()
}

// SetCPUFrequency overrides the calibrated frequency used by the CPUTime
// measurement mode. A no-op outside CPUTime mode.
func (e *Engine) SetCPUFrequency(hz float64) {
	if cc, ok := e.dispatcher.Clock().(*clock.CPUClock); ok {
		cc.SetFrequency(hz)
	}
}

// CPUFrequency returns the calibrated frequency (Hz) for CPUTime mode, or
// 0 outside that mode.
func (e *Engine) CPUFrequency() float64 {
	if cc, ok := e.dispatcher.Clock().(*clock.CPUClock); ok {
		return cc.Frequency()
	}
	return 0
}

// OnEvent is the engine's single entry point for the execution event
// stream (spec §6.1). It is a no-op when no run is live. Reentrant calls
// (the host re-entering while a handler is executing, e.g. to resolve a
// name) and events from the profiler module itself are dropped silently;
// see the package doc and spec §7 for the full dropped-event policy.
func (e *Engine) OnEvent(ev bridge.Event) {
	if e.inHook.Load() {
		log.Debugf("callprof: dropped reentrant %s event", ev.Kind)
		return
	}
	e.inHook.Store(true)
	defer e.inHook.Store(false)

	if !e.running.Load() {
		return
	}
	if e.selfSentinel != nil && ev.SelfRef == e.selfSentinel {
		log.Debugf("callprof: dropped self-event kind=%s", ev.Kind)
		return
	}
	if e.traceEvents {
		log.Debugf("callprof: task=%v kind=%s class=%v method=%v line=%d",
			ev.Task, ev.Kind, ev.ClassHandle, ev.MethodID, ev.SourceLine)
	}

	now := e.dispatcher.Clock().Now()
	task := e.reg.getOrCreate(ev.Task)
	e.accountContextSwitch(task, now)

	switch ev.Kind {
	case bridge.Line:
		e.handleLine(task, ev, now)
	case bridge.Call, bridge.CCall:
		e.handleCall(task, ev, now)
	case bridge.Return, bridge.CReturn:
		e.handleReturn(task, ev, now)
	}
}

// accountContextSwitch implements spec §4.5.5: when the task observed
// differs from the last one, the time since that task was last suspended
// is charged as wait time to whatever frame was on top of its stack, and
// bookkeeping is updated for the next switch.
func (e *Engine) accountContextSwitch(task *TaskState, now int64) {
	if e.lastTask == task {
		return
	}
	if e.lastTask != nil {
		wait := int64(0)
		if task.LastSwitchTime != 0 {
			wait = now - task.LastSwitchTime
		}
		if f, ok := task.stack.Peek(); ok {
			f.WaitTime += wait
		}
		e.lastTask.LastSwitchTime = now
	}
	task.LastSwitchTime = 0
	e.lastTask = task
}

// handleLine implements spec §4.5.6: update the call site of the current
// frame, or, if there is no current frame yet (first observation in this
// task — the stack holds only its permanent root sentinel, see TaskState),
// fall through to the CALL handler.
func (e *Engine) handleLine(task *TaskState, ev bridge.Event, now int64) {
	if f, ok := task.stack.Peek(); ok && f.Method != task.root {
		f.Line = ev.SourceLine
		return
	}
	e.handleCall(task, ev, now)
}

// handleCall implements spec §4.5.7: normalize the class, find-or-create
// the depth-0 method record, determine recursion depth from its live
// frame count, find-or-create the depth-d record if recursing, and push a
// new frame.
func (e *Engine) handleCall(task *TaskState, ev bridge.Event, now int64) {
	class := e.normalizeClass(ev.ClassHandle)

	base0 := methodKey{class: class, id: ev.MethodID, depth: 0}
	baseHash := base0.hash()
	base, ok := task.methods[baseHash]
	if !ok {
		base = newMethodRecord(base0, baseHash, nil)
		if ev.Kind != bridge.CCall {
			base.SourceFile = ev.SourceFile
			base.Line = ev.SourceLine
		}
		task.methods[baseHash] = base
	}

	depth := base.ActiveFrames
	base.ActiveFrames++

	method := base
	if depth > 0 {
		kd := methodKey{class: class, id: ev.MethodID, depth: int(depth)}
		dHash := kd.hash()
		rec, ok := task.methods[dHash]
		if !ok {
			rec = newMethodRecord(kd, dHash, base)
			rec.SourceFile = base.SourceFile
			rec.Line = base.Line
			task.methods[dHash] = rec
		}
		method = rec
	}

	frame := task.stack.Push()
	frame.Method = method
	frame.StartTime = now
	frame.WaitTime = 0
	frame.ChildTime = 0
	frame.Line = ev.SourceLine
}

// handleReturn implements spec §4.5.8: pop the top frame, derive its
// total/self time, fold it into the method record, decrement the base's
// active-frame count, and update the caller/callee edge and the parent's
// running child-time against whatever frame remains below it.
//
// Every task's stack is floored by a permanent, never-popped root sentinel
// frame (TaskState.root) standing in for whatever was already running when
// profiling started. When the frame popped here was the outermost real
// call — task.stack.Len() == 1 after the pop, meaning only the root
// sentinel remains — step 7's "outermost frame never loses time" fold
// applies to that sentinel, not to the method that just returned: the
// method already got its own total/wait credit unconditionally above, so
// folding into it a second time here would double-count it. The sentinel
// is never part of methods and never appears in a Snapshot, so this fold
// has nowhere to leak into.
func (e *Engine) handleReturn(task *TaskState, ev bridge.Event, now int64) {
	if task.stack.Len() <= 1 {
		// Only the root sentinel remains: a host stack unwind the
		// profiler never saw a matching CALL for.
		log.Debugf("callprof: dropped orphan return, task=%v", ev.Task)
		return
	}
	frame, _ := task.stack.Pop()

	total := now - frame.StartTime
	self := total - frame.ChildTime - frame.WaitTime
	method := frame.Method

	method.Called++
	method.TotalTime += total
	method.SelfTime += self
	method.WaitTime += frame.WaitTime
	method.Base.ActiveFrames--

	parentFrame, _ := task.stack.Peek() // always succeeds: the root sentinel floors every stack
	parentFrame.ChildTime += total

	if parentFrame.Method == task.root {
		task.root.TotalTime += total
		task.root.WaitTime += frame.WaitTime
		return
	}

	childEdge := parentFrame.Method.upsertChild(method)
	childEdge.accumulate(total, self, frame.WaitTime, parentFrame.Line)

	parentEdge := method.upsertParent(parentFrame.Method)
	parentEdge.accumulate(total, self, frame.WaitTime, parentFrame.Line)
}

// normalizeClass substitutes the real module class for an
// included-module proxy, via the host capability, per spec §4.5.4.
func (e *Engine) normalizeClass(class bridge.ClassHandle) bridge.ClassHandle {
	if e.cap != nil && e.cap.IsIncludedModuleProxy(class) {
		return e.cap.ResolveRealClass(class)
	}
	return class
}
