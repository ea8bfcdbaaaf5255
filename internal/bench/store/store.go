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

// Package store implements the long-lived object store: the layered group
// structure workers promote into, its admission queue, and the background
// consumer that appends, prunes, and reshuffles it (spec.md §4.7).
package store

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"memstress/internal/bench/bucket"
	"memstress/internal/bench/clock"
	"memstress/internal/bench/metrics"
	"memstress/internal/bench/object"
)

// DefaultGroupSize is the default bound on both admission queue capacity and
// per-group member count.
const DefaultGroupSize = 512

// InQueueRatio sets the high-water mark at sizeLimit*(1-1/InQueueRatio),
// i.e. 99% of sizeLimit for the default of 100.
const InQueueRatio = 100

// ConsumerIdleInterval is how long the consumer sleeps when idle or
// prune-throttled.
const ConsumerIdleInterval = 2 * time.Millisecond

// admissionEnqueueTimeout bounds how long tryAdd waits to enqueue.
const admissionEnqueueTimeout = 5 * time.Microsecond

// consumerPollTimeout bounds how long the consumer waits for a queued
// object before re-checking its loop condition.
const consumerPollTimeout = 1 * time.Microsecond

// Config holds the store's tunable parameters.
type Config struct {
	SizeLimit           int64
	GroupSize           int
	PruneRatioPerMinute int64
	ReshuffleRatio      int
}

type group struct {
	members []object.Object
}

// Store is the long-lived object store: an append-only forest of groups
// whose members may only reference members of the next-deeper group. All
// mutation of groups happens on the single consumer goroutine; TryAdd and
// CurrentSize are safe to call concurrently from worker goroutines.
type Store struct {
	cfg      Config
	clk      clock.Clock
	rng      *rand.Rand
	counters *metrics.Counters

	admissionQueue chan object.Object
	currentSize    atomic.Int64

	groupsMu sync.Mutex
	groups   []*group

	pruneBucket   *bucket.Strict
	pruneDisabled bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs a Store. rng should not be shared with any worker; the
// store consumer is single-threaded so one private generator suffices.
func New(cfg Config, clk clock.Clock, rng *rand.Rand, counters *metrics.Counters) *Store {
	if cfg.GroupSize <= 0 {
		cfg.GroupSize = DefaultGroupSize
	}
	s := &Store{
		cfg:            cfg,
		clk:            clk,
		rng:            rng,
		counters:       counters,
		admissionQueue: make(chan object.Object, cfg.GroupSize),
		groups:         []*group{{}},
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
	if cfg.PruneRatioPerMinute <= 0 {
		s.pruneDisabled = true
	} else {
		limit := cfg.SizeLimit / cfg.PruneRatioPerMinute
		s.pruneBucket = bucket.NewStrict(clk, limit, time.Minute, bucket.DefaultOverdraftRatio)
	}
	return s
}

// Start launches the background consumer goroutine.
func (s *Store) Start() {
	go s.run()
}

// TryAdd offers obj to the store. It is non-blocking from the caller's
// perspective beyond a short bounded wait to enqueue. Returns false
// immediately if the store is already at or above its size limit, or if the
// enqueue doesn't complete within the bounded wait.
func (s *Store) TryAdd(obj object.Object) bool {
	if s.currentSize.Load() >= s.cfg.SizeLimit {
		return false
	}
	timer := time.NewTimer(admissionEnqueueTimeout)
	defer timer.Stop()
	select {
	case s.admissionQueue <- obj:
		s.currentSize.Add(int64(obj.RealSize()))
		s.counters.CurrentStoreSize.Store(s.currentSize.Load())
		return true
	case <-timer.C:
		return false
	}
}

// CurrentSize returns the atomically tracked total footprint of everything
// currently held by the store.
func (s *Store) CurrentSize() int64 {
	return s.currentSize.Load()
}

// GroupCount returns the number of groups (test/diagnostic helper).
func (s *Store) GroupCount() int {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()
	return len(s.groups)
}

// StopAndReturnSize signals the consumer to stop, waits for it to exit, and
// returns the tracked size. Idempotent: calling it twice returns the same
// size without blocking on an already-stopped consumer.
func (s *Store) StopAndReturnSize() int64 {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
	return s.currentSize.Load()
}

// Inspect runs f with the groups' members exposed for read. This is a
// test-only accessor: it takes the same lock the consumer uses for
// mutation, so it is safe to call concurrently with a running consumer, but
// by the time f returns the contents may already be stale.
func (s *Store) Inspect(f func(groups [][]object.Object)) {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()
	snapshot := make([][]object.Object, len(s.groups))
	for i, g := range s.groups {
		snapshot[i] = g.members
	}
	f(snapshot)
}

func (s *Store) run() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		hw := float64(s.cfg.SizeLimit) * (1 - 1.0/InQueueRatio)
		if float64(s.currentSize.Load()) < hw {
			if obj, ok := s.pollAdmission(); ok {
				s.addToStore(obj)
			}
			continue
		}

		if !s.pruneDisabled && !s.pruneBucket.IsThrottled() {
			if obj, ok := s.pollAdmission(); ok {
				victimFootprint := s.replaceInStore(obj)
				if victimFootprint > 0 {
					s.pruneBucket.Deduct(victimFootprint)
				}
				if s.rng.IntN(2) == 0 {
					s.reshuffle()
				}
			}
			continue
		}

		select {
		case <-s.stopCh:
			return
		case <-time.After(ConsumerIdleInterval):
		}
	}
}

// pollAdmission polls the admission queue with a short bound, returning
// (nil, false) if nothing arrived or the store was asked to stop.
func (s *Store) pollAdmission() (object.Object, bool) {
	timer := time.NewTimer(consumerPollTimeout)
	defer timer.Stop()
	select {
	case obj := <-s.admissionQueue:
		return obj, true
	case <-s.stopCh:
		return nil, false
	case <-timer.C:
		return nil, false
	}
}

// addToStore appends obj to the tail group, creating a new tail if the
// current one is full, then attempts a back-reference from the previous
// group (tryRefMe).
func (s *Store) addToStore(obj object.Object) {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()

	tailIndex := len(s.groups) - 1
	tail := s.groups[tailIndex]
	if len(tail.members) >= s.cfg.GroupSize {
		s.groups = append(s.groups, &group{})
		tailIndex = len(s.groups) - 1
		tail = s.groups[tailIndex]
	}
	tail.members = append(tail.members, obj)
	s.tryRefMeLocked(obj, tailIndex)
}

// replaceInStore evicts a random member of a randomly-chosen group and
// inserts obj in its place, returning the evicted member's footprint (0 if
// the chosen group was empty, in which case obj is still inserted but
// nothing was pruned).
func (s *Store) replaceInStore(obj object.Object) int64 {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()

	groupCount := len(s.groups)
	gi := s.rng.IntN(groupCount)
	g := s.groups[gi]

	var victimFootprint int64
	if len(g.members) > 0 {
		vi := s.rng.IntN(len(g.members))
		victim := g.members[vi]

		if gi > 0 {
			// Clear any in-group reference to the victim before removing it,
			// so no live member is left pointing at a slot we're about to
			// drop. Cross-layer dangling references are tolerated and get
			// re-rooted by a later reshuffle.
			for _, m := range g.members {
				if m != victim && m.Next() == victim {
					m.SetNext(nil)
				}
			}
		}

		last := len(g.members) - 1
		g.members[vi] = g.members[last]
		g.members[last] = nil
		g.members = g.members[:last]

		victimFootprint = int64(victim.RealSize())
		s.currentSize.Add(-victimFootprint)
	}

	g.members = append(g.members, obj)
	s.counters.CurrentStoreSize.Store(s.currentSize.Load())

	s.tryRefMeLocked(obj, gi)
	s.tryRefLocked(obj, gi)

	return victimFootprint
}

// tryRefMeLocked implements spec.md §4.7.3: with 50% probability, have a
// random member of the previous group point its next reference at obj. Must
// be called with groupsMu held.
func (s *Store) tryRefMeLocked(obj object.Object, groupIndex int) {
	if groupIndex <= 0 {
		return
	}
	if s.rng.IntN(2) != 0 {
		return
	}
	prev := s.groups[groupIndex-1]
	if len(prev.members) == 0 {
		return
	}
	slot := s.rng.IntN(len(prev.members))
	prev.members[slot].SetNext(obj)
}

// tryRefLocked implements spec.md §4.7.4: with 50% probability, point obj's
// own next reference at a random member of the next group; otherwise clear
// it. Must be called with groupsMu held.
func (s *Store) tryRefLocked(obj object.Object, groupIndex int) {
	groupCount := len(s.groups)
	if groupIndex >= groupCount-1 || s.rng.IntN(2) != 0 {
		obj.SetNext(nil)
		return
	}
	next := s.groups[groupIndex+1]
	if len(next.members) == 0 {
		obj.SetNext(nil)
		return
	}
	slot := s.rng.IntN(len(next.members))
	obj.SetNext(next.members[slot])
}

// reshuffle rewrites inter-layer references among roughly
// groupCount/reshuffleRatio randomly chosen non-terminal groups, touching
// every member it rewrites to exercise the write barrier. No-op when
// reshuffleRatio is 0 or there's only one group.
func (s *Store) reshuffle() {
	if s.cfg.ReshuffleRatio == 0 {
		return
	}
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()

	groupCount := len(s.groups)
	if groupCount <= 1 {
		return
	}
	nonTerminal := groupCount - 1
	n := nonTerminal / s.cfg.ReshuffleRatio
	for i := 0; i < n; i++ {
		gi := s.rng.IntN(nonTerminal)
		g := s.groups[gi]
		for _, m := range g.members {
			s.tryRefLocked(m, gi)
			m.Touch()
		}
	}
}
