// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package log provides the small, replaceable leveled logger the engine
// uses to report dropped events and other diagnostics. It mirrors the
// shape of the corpus's pkg/util/log: package-level functions over a
// swappable global logger, defaulting to a no-op so importing callprof
// never forces log configuration on a host application.
package log

import "go.uber.org/zap"

var global = zap.NewNop().Sugar()

// SetLogger replaces the global logger. Passing nil restores the no-op
// logger. Hosts embedding callprof typically call this once at startup
// with their own *zap.Logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		global = zap.NewNop().Sugar()
		return
	}
	global = l.Sugar()
}

// Debugf logs at debug level. The engine uses this for the dropped-event
// policy (§7): reentrant events, orphan returns, self-events, and for the
// optional per-event trace enabled by callprof.WithEventTrace.
func Debugf(format string, args ...any) {
	global.Debugf(format, args...)
}

// Infof logs at info level.
func Infof(format string, args ...any) {
	global.Infof(format, args...)
}

// Warnf logs at warn level.
func Warnf(format string, args ...any) {
	global.Warnf(format, args...)
}

// Errorf logs at error level.
func Errorf(format string, args ...any) {
	global.Errorf(format, args...)
}
