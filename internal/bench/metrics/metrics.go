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

// Package metrics holds the process-scoped atomic counters shared across
// the factory, store, and sampler, plus an opt-in Prometheus exposition of
// them. Counters are carried explicitly on a *Counters handle constructed by
// the coordinator rather than as free-standing package globals, per the
// design notes in spec.md §9.
package metrics

import "sync/atomic"

// Counters bundles the process-wide atomic counters a single memstress run
// needs. One instance is created per run by the coordinator and threaded
// through to the object factory, store, and sampler.
type Counters struct {
	// BytesAllocated is the cumulative heap footprint of every object ever
	// created by the factory, incremented on creation regardless of whether
	// the object is later promoted, retained, or dropped.
	BytesAllocated atomic.Int64

	// CurrentStoreSize mirrors the long-lived store's tracked size so the
	// Prometheus exporter can read it without importing the store package
	// (which itself imports metrics), keeping all process-wide numbers in
	// one place for the optional exporter.
	CurrentStoreSize atomic.Int64

	// FinalizedCount counts how many finalizable-variant objects have had
	// their reclaim cleanup invoked. Diagnostic only.
	FinalizedCount atomic.Int64

	// ThrottledTicks counts how many times any worker observed its bucket as
	// throttled. Diagnostic only; not part of the core control loop.
	ThrottledTicks atomic.Int64

	// PromotionAttempts and PromotionAdmits track the promotion
	// sub-protocol's overall hit rate across all workers.
	PromotionAttempts atomic.Int64
	PromotionAdmits   atomic.Int64
}

// NewCounters returns a freshly zeroed Counters handle for one run.
func NewCounters() *Counters {
	return &Counters{}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	BytesAllocated     int64
	CurrentStoreSize   int64
	FinalizedCount     int64
	ThrottledTicks     int64
	PromotionAttempts  int64
	PromotionAdmits    int64
}

// Snapshot reads every counter. Individual loads are not mutually atomic as
// a group, which is fine: these are diagnostic/reporting values, not control
// flow.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		BytesAllocated:    c.BytesAllocated.Load(),
		CurrentStoreSize:  c.CurrentStoreSize.Load(),
		FinalizedCount:    c.FinalizedCount.Load(),
		ThrottledTicks:    c.ThrottledTicks.Load(),
		PromotionAttempts: c.PromotionAttempts.Load(),
		PromotionAdmits:   c.PromotionAdmits.Load(),
	}
}
