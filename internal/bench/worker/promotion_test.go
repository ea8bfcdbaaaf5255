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

	"memstress/internal/bench/clock"
	"memstress/internal/bench/metrics"
	"memstress/internal/bench/object"
	"memstress/internal/bench/store"
)

func newTestStoreAlwaysAdmits(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(store.Config{SizeLimit: 1 << 30, GroupSize: 64}, clock.System{}, rand.New(rand.NewPCG(5, 6)), metrics.NewCounters())
	s.Start()
	t.Cleanup(func() { s.StopAndReturnSize() })
	return s
}

func newTestStoreNeverAdmits(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(store.Config{SizeLimit: 0, GroupSize: 64}, clock.System{}, rand.New(rand.NewPCG(5, 6)), metrics.NewCounters())
	s.Start()
	t.Cleanup(func() { s.StopAndReturnSize() })
	return s
}

func TestPromoterStartsAtMaxRatio(t *testing.T) {
	p := newPromoter(metrics.NewCounters())
	if p.r != MaxLongLivedRatio {
		t.Fatalf("initial r = %d, want %d", p.r, MaxLongLivedRatio)
	}
}

func TestPromoterRatioGrowsOnRejection(t *testing.T) {
	counters := metrics.NewCounters()
	p := newPromoter(counters)
	st := newTestStoreNeverAdmits(t)
	f := object.NewFactory(rand.New(rand.NewPCG(1, 2)), counters, object.OverheadCompressed, object.Plain)

	prev := p.r
	for i := 0; i < 5; i++ {
		n := p.counter
		for j := int64(0); j < n; j++ {
			obj, err := f.CreateSize(64)
			if err != nil {
				t.Fatalf("CreateSize: %v", err)
			}
			p.offer(st, obj)
		}
		if p.r <= prev && prev != MinLongLivedRatio {
			t.Fatalf("expected r to grow after repeated rejection, stayed at %d", p.r)
		}
		prev = p.r
	}
	if got := counters.PromotionAttempts.Load(); got == 0 {
		t.Fatalf("expected nonzero PromotionAttempts")
	}
	if got := counters.PromotionAdmits.Load(); got != 0 {
		t.Fatalf("PromotionAdmits = %d, want 0 (store never admits)", got)
	}
}

func TestPromoterRatioShrinksOnAcceptance(t *testing.T) {
	counters := metrics.NewCounters()
	p := newPromoter(counters)
	p.r = 16
	p.counter = 16
	st := newTestStoreAlwaysAdmits(t)
	f := object.NewFactory(rand.New(rand.NewPCG(1, 2)), counters, object.OverheadCompressed, object.Plain)

	for j := int64(0); j < 16; j++ {
		obj, err := f.CreateSize(64)
		if err != nil {
			t.Fatalf("CreateSize: %v", err)
		}
		p.offer(st, obj)
	}
	if p.r != 8 {
		t.Fatalf("r after acceptance = %d, want 8", p.r)
	}
	if got := counters.PromotionAdmits.Load(); got != 1 {
		t.Fatalf("PromotionAdmits = %d, want 1", got)
	}
}

func TestPromoterRatioNeverBelowMax(t *testing.T) {
	counters := metrics.NewCounters()
	p := newPromoter(counters)
	st := newTestStoreAlwaysAdmits(t)
	f := object.NewFactory(rand.New(rand.NewPCG(1, 2)), counters, object.OverheadCompressed, object.Plain)

	for i := 0; i < 20; i++ {
		obj, err := f.CreateSize(64)
		if err != nil {
			t.Fatalf("CreateSize: %v", err)
		}
		p.offer(st, obj)
	}
	if p.r < MaxLongLivedRatio {
		t.Fatalf("r = %d fell below MaxLongLivedRatio %d", p.r, MaxLongLivedRatio)
	}
}
