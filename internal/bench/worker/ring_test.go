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

package worker

import (
	"math/rand/v2"
	"testing"

	"memstress/internal/bench/metrics"
	"memstress/internal/bench/object"
)

func newObj(t *testing.T) object.Object {
	t.Helper()
	f := object.NewFactory(rand.New(rand.NewPCG(1, 2)), metrics.NewCounters(), object.OverheadCompressed, object.Plain)
	o, err := f.CreateSize(64)
	if err != nil {
		t.Fatalf("CreateSize: %v", err)
	}
	return o
}

func TestRingNoEvictionUnderCapacity(t *testing.T) {
	r := newRing(3)
	for i := 0; i < 3; i++ {
		if _, evicted := r.push(newObj(t)); evicted {
			t.Fatalf("push %d: unexpected eviction under capacity", i)
		}
	}
}

func TestRingEvictsOldestInFIFOOrder(t *testing.T) {
	r := newRing(2)
	a := newObj(t)
	b := newObj(t)
	c := newObj(t)

	r.push(a)
	r.push(b)
	evicted, ok := r.push(c)
	if !ok {
		t.Fatalf("expected eviction on third push into capacity-2 ring")
	}
	if evicted != a {
		t.Fatalf("expected oldest (a) evicted, got a different object")
	}
}
