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

package bucket

import (
	"errors"
	"sync"
	"time"

	"memstress/internal/bench/clock"
)

// ErrRequestedBelowMinimum is returned by Take when requested < minimum,
// which is an invalid argument rather than a normal denial.
var ErrRequestedBelowMinimum = errors.New("bucket: requested below minimum")

// Bursty is a capacity + continuous-refill-rate token bucket. It allows
// bursts up to capacity followed by a smooth refill, and supports partial
// grants down to a caller-supplied floor. It never grants more than is
// available and never lets available exceed capacity.
type Bursty struct {
	mu         sync.Mutex
	clk        clock.Clock
	capacity   float64
	refillRate float64 // tokens per timeUnit
	timeUnit   time.Duration
	available  float64
	lastRefill time.Time
}

// NewBursty constructs a Bursty bucket with the given capacity and refill
// rate (tokens per timeUnit). The bucket starts full, matching the "allows
// an initial burst" contract in spec.md §4.3.
func NewBursty(clk clock.Clock, capacity float64, refillRate float64, timeUnit time.Duration) *Bursty {
	if timeUnit <= 0 {
		timeUnit = time.Second
	}
	return &Bursty{
		clk:        clk,
		capacity:   capacity,
		refillRate: refillRate,
		timeUnit:   timeUnit,
		available:  capacity,
		lastRefill: clk.Now(),
	}
}

// Take requests `requested` tokens. If minimum is non-nil and requested is
// less than *minimum, Take returns ErrRequestedBelowMinimum. Otherwise:
//   - if the full request fits in available, it is granted in full;
//   - else if minimum is set and available >= *minimum, all of available is
//     granted;
//   - else if minimum is nil, all of available (possibly 0) is granted;
//   - else (minimum set but unmet) nothing is granted.
func (b *Bursty) Take(requested int64, minimum *int64) (int64, error) {
	if minimum != nil && requested < *minimum {
		return 0, ErrRequestedBelowMinimum
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()

	req := float64(requested)
	if req <= b.available {
		b.available -= req
		return requested, nil
	}

	if minimum != nil {
		min := float64(*minimum)
		if b.available >= min {
			granted := int64(b.available)
			b.available = 0
			return granted, nil
		}
		return 0, nil
	}

	granted := int64(b.available)
	b.available = 0
	return granted, nil
}

// Available returns the current token count (for tests/diagnostics).
func (b *Bursty) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	return b.available
}

func (b *Bursty) refill() {
	now := b.clk.Now()
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	credit := b.refillRate * (float64(elapsed) / float64(b.timeUnit))
	b.available += credit
	if b.available > b.capacity {
		b.available = b.capacity
	}
	b.lastRefill = now
}
