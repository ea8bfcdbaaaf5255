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
	"time"

	"memstress/internal/bench/bucket"
	"memstress/internal/bench/clock"
	"memstress/internal/bench/metrics"
	"memstress/internal/bench/object"
	"memstress/internal/bench/ramp"
	"memstress/internal/bench/store"
)

// StrictConfig configures a StrictWorker.
type StrictConfig struct {
	RateBytesPerSec int64
	MinObjectSize   int
	MaxObjectSize   int
	RingLength      int
	RampUpSeconds   float64
}

// StrictWorker drives allocation through a Strict token bucket: a fixed
// per-slice budget with bounded overdraft, optionally ramped up from zero
// over RampUpSeconds along a sinusoidal curve (spec.md §4.4, §4.8).
type StrictWorker struct {
	cfg      StrictConfig
	factory  *object.Factory
	store    *store.Store
	clk      clock.Clock
	counters *metrics.Counters
}

// NewStrictWorker constructs a StrictWorker. factory must be owned
// exclusively by this worker (its PRNG is not safe for concurrent use).
func NewStrictWorker(cfg StrictConfig, factory *object.Factory, st *store.Store, clk clock.Clock, counters *metrics.Counters) *StrictWorker {
	return &StrictWorker{cfg: cfg, factory: factory, store: st, clk: clk, counters: counters}
}

// Run paces allocation at RateBytesPerSec bytes/second until ctx is done,
// organizing allocation into waves of roughly rate/10 bytes each. It returns
// the bucket's residual token count at the point Run stops, which callers
// use as an upper bound on end-of-run under-delivery (spec.md §8).
func (w *StrictWorker) Run(ctx context.Context) (int64, error) {
	start := w.clk.Now()
	waveTarget := w.cfg.RateBytesPerSec / 10
	if waveTarget <= 0 {
		waveTarget = 1
	}

	// The bucket's limit is per DefaultTimeSlice, so the per-second rate is
	// scaled down to one slice's share.
	sliceLimit := w.cfg.RateBytesPerSec * int64(bucket.DefaultTimeSlice) / int64(time.Second)
	rampActive := w.cfg.RampUpSeconds > 0
	initialLimit := sliceLimit
	if rampActive {
		initialLimit = 0
	}
	b := bucket.NewStrict(w.clk, initialLimit, bucket.DefaultTimeSlice, bucket.DefaultOverdraftRatio)
	ring := newRing(w.cfg.RingLength)
	promoter := newPromoter(w.counters)

	for {
		if ctx.Err() != nil {
			return b.Tokens(), nil
		}

		var wave int64
		for wave < waveTarget {
			if ctx.Err() != nil {
				return b.Tokens(), nil
			}

			if rampActive {
				elapsed := w.clk.Now().Sub(start).Seconds()
				if elapsed >= w.cfg.RampUpSeconds {
					rampActive = false
					b.SetLimit(sliceLimit)
				} else {
					target := ramp.Sinusoidal(elapsed, w.cfg.RampUpSeconds, float64(sliceLimit))
					b.SetLimit(int64(target))
				}
			}

			if b.IsThrottled() {
				w.counters.ThrottledTicks.Add(1)
				w.clk.Sleep(time.Millisecond)
				break
			}

			obj, err := w.factory.Create(w.cfg.MinObjectSize, w.cfg.MaxObjectSize)
			if err != nil {
				return b.Tokens(), err
			}
			footprint := int64(obj.RealSize())
			b.Deduct(footprint)
			wave += footprint

			if evicted, ok := ring.push(obj); ok {
				promoter.offer(w.store, evicted)
			}
		}
	}
}
