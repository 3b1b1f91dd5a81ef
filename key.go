// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package callprof

import (
	"fmt"

	"github.com/DataDog/callprof/bridge"
)

// methodKey identifies a method record: the source (class, method) pair
// plus the recursion depth at which it was observed (spec §3: two records
// with equal class/method but different depth are distinct).
type methodKey struct {
	class bridge.ClassHandle
	id    bridge.MethodID
	depth int
}

// identity is the (class, method) pair without depth, used to find a
// record's base (depth-0) counterpart.
type identity struct {
	class bridge.ClassHandle
	id    bridge.MethodID
}

func (k methodKey) identity() identity {
	return identity{class: k.class, id: k.id}
}

// hash produces the 64-bit numeric key the method/edge tables are indexed
// by. Spec §4.3 suggests class*100 + method*10 + depth as "injective
// enough"; since ClassHandle/MethodID are opaque and may not be integers,
// this hashes their string form instead, which gives the same collision
// characteristics (good enough in practice, not cryptographically unique)
// while staying representation-agnostic per spec §9's open question.
func (k methodKey) hash() uint64 {
	return k.identity().hash()*10 + uint64(k.depth)
}

func (id identity) hash() uint64 {
	return fnv1a(fmt.Sprintf("%v\x00%v", id.class, id.id))
}

// fnv1a is the 64-bit FNV-1a hash, used instead of the spec's suggested
// "class*100 + method*10 + depth" arithmetic because ClassHandle/MethodID
// are any-typed opaque handles, not guaranteed integers.
func fnv1a(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
