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

package object

import (
	"fmt"
	"math/rand/v2"
	"runtime"

	"memstress/internal/bench/metrics"
)

// ErrSizeBelowOverhead is returned by Create and CreateSize when a
// requested object size is smaller than the configured
// per-object overhead — an arithmetic invariant violation at construction
// time (spec.md §7), surfaced as a configuration error rather than a panic.
type ErrSizeBelowOverhead struct {
	MinSize  int
	Overhead int64
}

func (e *ErrSizeBelowOverhead) Error() string {
	return fmt.Sprintf("object: minSize %d is below overhead %d", e.MinSize, e.Overhead)
}

// ErrMaxBelowMin is returned when maxSize < minSize.
type ErrMaxBelowMin struct {
	MinSize, MaxSize int
}

func (e *ErrMaxBelowMin) Error() string {
	return fmt.Sprintf("object: maxSize %d is below minSize %d", e.MaxSize, e.MinSize)
}

// Factory creates allocated objects of a single configured Variant, drawing
// sizes from a per-worker PRNG stream and recording bytes-allocated on the
// shared counters handle.
type Factory struct {
	rng      *rand.Rand
	counters *metrics.Counters
	overhead int64
	variant  Variant
}

// NewFactory constructs a Factory. rng should be a per-worker generator
// (e.g. rand.New(rand.NewPCG(seed, workerID))) so concurrent workers don't
// contend on a shared PRNG.
func NewFactory(rng *rand.Rand, counters *metrics.Counters, overhead int64, variant Variant) *Factory {
	return &Factory{rng: rng, counters: counters, overhead: overhead, variant: variant}
}

// Create draws a size uniformly from [minSize, maxSize) (or exactly minSize
// if maxSize == minSize) and allocates an object of that size. It returns
// ErrMaxBelowMin if maxSize < minSize.
func (f *Factory) Create(minSize, maxSize int) (Object, error) {
	size := minSize
	if maxSize > minSize {
		size = minSize + f.rng.IntN(maxSize-minSize)
	} else if maxSize < minSize {
		return nil, &ErrMaxBelowMin{MinSize: minSize, MaxSize: maxSize}
	}
	return f.CreateSize(size)
}

// CreateSize allocates an object of exactly size bytes of payload. Used
// directly by the bursty worker, which constructs objects sized to exactly
// what the bucket granted (spec.md §4.5).
func (f *Factory) CreateSize(size int) (Object, error) {
	if size < int(f.overhead) {
		return nil, &ErrSizeBelowOverhead{MinSize: size, Overhead: f.overhead}
	}
	footprint := footprintOf(f.overhead, size)
	payload := make([]byte, size)

	var obj Object
	switch f.variant {
	case Weak:
		obj = &weakObject{payload: payload, footprint: footprint, seed: f.rng.Uint64()}
	case Finalizable:
		fo := &finalizableObject{payload: payload, footprint: footprint, seed: f.rng.Uint64()}
		runtime.AddCleanup(fo, func(c *metrics.Counters) { c.FinalizedCount.Add(1) }, f.counters)
		obj = fo
	default:
		obj = &plainObject{payload: payload, footprint: footprint, seed: f.rng.Uint64()}
	}

	f.counters.BytesAllocated.Add(int64(footprint))
	return obj, nil
}

// Overhead returns the per-object overhead this factory was configured
// with.
func (f *Factory) Overhead() int64 { return f.overhead }

// Variant returns the object variant this factory constructs.
func (f *Factory) Variant() Variant { return f.variant }
