// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package object defines the synthetic allocated-object representation that
// the rest of memstress pushes through survivor rings and the long-lived
// store, plus the three variants (plain / weak / finalizable) a run can be
// configured to use.
package object

import "weak"

// Variant selects which concrete Object implementation the Factory
// constructs.
type Variant int

const (
	// Plain holds its forward reference with an ordinary owning pointer.
	Plain Variant = iota
	// Weak holds its forward reference via weak.Pointer, so Next returns
	// nil once the referent becomes unreachable and is reclaimed.
	Weak
	// Finalizable behaves like Plain but registers a cleanup hook that
	// increments a debug counter when the object is reclaimed.
	Finalizable
)

func (v Variant) String() string {
	switch v {
	case Plain:
		return "plain"
	case Weak:
		return "weak"
	case Finalizable:
		return "finalizable"
	default:
		return "unknown"
	}
}

// Overhead constants per spec.md §3: the fixed per-object header cost a
// host runtime is assumed to pay, selected once at process startup.
const (
	OverheadCompressed    int64 = 40
	OverheadNonCompressed int64 = 56
)

// Object is the common capability set shared by every variant: set/read a
// single forward reference, mutate a payload byte to exercise a write
// barrier, and report the accounted heap footprint.
type Object interface {
	SetNext(n Object)
	Next() Object
	Touch()
	RealSize() int
	// Sum returns the sum of the payload bytes as an int64. Test-only
	// helper (spec.md §4.1).
	Sum() int64
}

// roundUp8 rounds n up to the next multiple of 8, per the heap-footprint
// invariant in spec.md §3.
func roundUp8(n int) int {
	return (n + 7) &^ 7
}

// footprintOf computes the heap footprint for a payload of length n under
// the given overhead constant.
func footprintOf(overhead int64, n int) int {
	return int(overhead) + roundUp8(n)
}

// --- Plain -------------------------------------------------------------

type plainObject struct {
	payload   []byte
	footprint int
	seed      uint64
	next      Object
}

func (o *plainObject) SetNext(n Object) { o.next = n }
func (o *plainObject) Next() Object     { return o.next }
func (o *plainObject) RealSize() int    { return o.footprint }
func (o *plainObject) Touch()           { touchPayload(o.payload, &o.seed) }
func (o *plainObject) Sum() int64       { return sumPayload(o.payload) }

// --- Weak ----------------------------------------------------------------

type weakObject struct {
	payload   []byte
	footprint int
	seed      uint64
	next      weak.Pointer[weakObject]
}

func (o *weakObject) SetNext(n Object) {
	if n == nil {
		o.next = weak.Pointer[weakObject]{}
		return
	}
	wo, ok := n.(*weakObject)
	if !ok {
		panic("object: weak variant can only reference another weak-variant object")
	}
	o.next = weak.Make(wo)
}

func (o *weakObject) Next() Object {
	p := o.next.Value()
	if p == nil {
		return nil
	}
	return p
}

func (o *weakObject) RealSize() int { return o.footprint }
func (o *weakObject) Touch()        { touchPayload(o.payload, &o.seed) }
func (o *weakObject) Sum() int64    { return sumPayload(o.payload) }

// --- Finalizable -----------------------------------------------------------

type finalizableObject struct {
	payload   []byte
	footprint int
	seed      uint64
	next      Object
}

func (o *finalizableObject) SetNext(n Object) { o.next = n }
func (o *finalizableObject) Next() Object     { return o.next }
func (o *finalizableObject) RealSize() int    { return o.footprint }
func (o *finalizableObject) Touch()           { touchPayload(o.payload, &o.seed) }
func (o *finalizableObject) Sum() int64       { return sumPayload(o.payload) }

// --- shared helpers --------------------------------------------------------

// touchPayload mutates one payload byte at a pseudo-random index, advancing
// seed with a cheap linear congruential step so repeated Touch calls spread
// across the payload instead of always hitting the same byte. A no-op here
// would be a correctness bug: the whole point of Touch is to exercise the
// host runtime's write barrier (spec.md §4.1).
func touchPayload(payload []byte, seed *uint64) {
	if len(payload) == 0 {
		return
	}
	*seed = *seed*6364136223846793005 + 1442695040888963407
	idx := int(*seed % uint64(len(payload)))
	payload[idx]++
}

func sumPayload(payload []byte) int64 {
	var total int64
	for _, b := range payload {
		total += int64(b)
	}
	return total
}
