// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Command callprofdemo is a manual smoke-test harness for the callprof
// engine: it drives a fake bridge through the scenario-A event sequence
// from spec.md and prints the resulting method table as indented JSON.
// It is not a real host integration — there is no interpreter behind it.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/DataDog/callprof"
	"github.com/DataDog/callprof/bridge"
)

// noProxies answers every bridge.Capability query the way a host with no
// included-module proxies would.
type noProxies struct{}

func (noProxies) IsIncludedModuleProxy(bridge.ClassHandle) bool { return false }
func (noProxies) ResolveRealClass(class bridge.ClassHandle) bridge.ClassHandle {
	return class
}

type methodView struct {
	Class    any   `json:"class"`
	Method   any   `json:"method"`
	Depth    int   `json:"depth"`
	Called   int64 `json:"called"`
	Total    int64 `json:"total_time"`
	Self     int64 `json:"self_time"`
	Wait     int64 `json:"wait_time"`
	Children int64 `json:"children_time"`
}

func main() {
	e := callprof.New(noProxies{})
	if err := e.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "start:", err)
		os.Exit(1)
	}

	// Scenario A from spec.md §8: a straight call chain on one task.
	e.OnEvent(bridge.Event{Kind: bridge.Call, Task: "T", ClassHandle: "C", MethodID: "A", SourceLine: 1})
	e.OnEvent(bridge.Event{Kind: bridge.Call, Task: "T", ClassHandle: "C", MethodID: "B", SourceLine: 1})
	e.OnEvent(bridge.Event{Kind: bridge.Return, Task: "T"})
	e.OnEvent(bridge.Event{Kind: bridge.Return, Task: "T"})

	snap, err := e.Stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "stop:", err)
		os.Exit(1)
	}

	views := make([]methodView, 0)
	for _, m := range snap.Task("T") {
		views = append(views, methodView{
			Class:    m.ClassHandle,
			Method:   m.MethodID,
			Depth:    m.Depth,
			Called:   m.Called,
			Total:    m.TotalTime,
			Self:     m.SelfTime,
			Wait:     m.WaitTime,
			Children: m.ChildrenTime(),
		})
	}

	out, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal:", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
