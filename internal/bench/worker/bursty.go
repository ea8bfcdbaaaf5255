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
	"context"
	"math/rand/v2"
	"time"

	"memstress/internal/bench/bucket"
	"memstress/internal/bench/clock"
	"memstress/internal/bench/metrics"
	"memstress/internal/bench/object"
	"memstress/internal/bench/store"
)

// BurstyConfig configures a BurstyWorker.
type BurstyConfig struct {
	RateBytesPerSec int64
	MinObjectSize   int
	MaxObjectSize   int
	RingLength      int
	// Smoothness is in [0, 1]. 0 disables sleep-debt smoothing entirely
	// (the worker fires as fast as the bucket allows); 1 fully smooths
	// output toward the per-object pacing an average-sized object would
	// need to hit the target rate exactly.
	Smoothness float64
}

// BurstyWorker drives allocation through a Bursty token bucket: a capacity
// that allows an initial burst, refilled continuously, with partial grants
// down to MinObjectSize (spec.md §4.5). An optional sleep-debt smoothing
// pass keeps the per-object pacing from clumping into sub-second spikes.
type BurstyWorker struct {
	cfg      BurstyConfig
	factory  *object.Factory
	store    *store.Store
	clk      clock.Clock
	rng      *rand.Rand
	counters *metrics.Counters
}

// NewBurstyWorker constructs a BurstyWorker. rng draws the candidate object
// size each iteration and should not be shared with factory's own PRNG
// stream (factory.CreateSize draws each object's touch seed from that
// stream, and neither generator is safe for concurrent use).
func NewBurstyWorker(cfg BurstyConfig, factory *object.Factory, st *store.Store, clk clock.Clock, rng *rand.Rand, counters *metrics.Counters) *BurstyWorker {
	return &BurstyWorker{cfg: cfg, factory: factory, store: st, clk: clk, rng: rng, counters: counters}
}

// Run paces allocation at RateBytesPerSec bytes/second using a Bursty
// bucket until ctx is done. It returns the bucket's residual available
// token count at the point Run stops.
func (w *BurstyWorker) Run(ctx context.Context) (int64, error) {
	capacity := float64(w.cfg.RateBytesPerSec)
	refillRate := float64(w.cfg.RateBytesPerSec) / 1000.0
	b := bucket.NewBursty(w.clk, capacity, refillRate, time.Millisecond)

	ring := newRing(w.cfg.RingLength)
	promoter := newPromoter(w.counters)

	expectedAverageSize := float64(w.cfg.MinObjectSize+w.cfg.MaxObjectSize) / 2
	var targetPerObject time.Duration
	if w.cfg.Smoothness > 0 && w.cfg.RateBytesPerSec > 0 {
		secondsPerObject := expectedAverageSize / float64(w.cfg.RateBytesPerSec)
		targetPerObject = time.Duration(secondsPerObject * w.cfg.Smoothness * float64(time.Second))
	}

	minObjectSize := int64(w.cfg.MinObjectSize)
	var sleepDebt time.Duration

	for {
		if ctx.Err() != nil {
			return int64(b.Available()), nil
		}

		candidate := w.cfg.MinObjectSize
		if w.cfg.MaxObjectSize > w.cfg.MinObjectSize {
			candidate = w.cfg.MinObjectSize + w.rng.IntN(w.cfg.MaxObjectSize-w.cfg.MinObjectSize)
		}

		opStart := w.clk.Now()
		granted, err := b.Take(int64(candidate), &minObjectSize)
		if err != nil {
			return int64(b.Available()), err
		}
		if granted == 0 {
			continue
		}

		obj, err := w.factory.CreateSize(int(granted))
		if err != nil {
			return int64(b.Available()), err
		}
		if evicted, ok := ring.push(obj); ok {
			promoter.offer(w.store, evicted)
		}

		if targetPerObject > 0 {
			// Fixed the source's elapsed-time computation, which measured
			// start-now (negative) instead of now-start; see spec.md §9.
			elapsed := w.clk.Now().Sub(opStart)
			sleepDebt += targetPerObject - elapsed
			if sleepDebt > time.Millisecond {
				w.clk.Sleep(time.Millisecond)
				sleepDebt = 0
			}
		}
	}
}
