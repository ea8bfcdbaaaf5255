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

// Package bucket implements the two token-bucket rate limiters used to pace
// allocation: Strict (fixed per-slice limit with bounded overdraft) and
// Bursty (capacity + continuous refill, with partial-grant support).
package bucket

import (
	"sync"
	"time"

	"memstress/internal/bench/clock"
)

// DefaultOverdraftRatio is the default divisor used to compute a Strict
// bucket's per-slice overdraft allowance (limit / DefaultOverdraftRatio).
const DefaultOverdraftRatio = 10

// DefaultTimeSlice is the default width of a Strict bucket's replenishment
// slice.
const DefaultTimeSlice = 10 * time.Millisecond

// Strict is a fixed-limit-per-time-slice token bucket. Tokens do not carry
// over between slices: at the start of each slice the bucket is reset to
// limit, discarding any unused surplus or outstanding overdraft from the
// prior slice. A bounded overdraft lets deduct push the bucket negative by
// up to limit/overdraftRatio before reporting throttled.
//
// Not safe for concurrent use by multiple goroutines beyond the guarantee
// that its own methods are internally synchronized; callers should still
// give each worker its own Strict bucket (§5 of the design: "per-worker, not
// shared").
type Strict struct {
	mu             sync.Mutex
	clk            clock.Clock
	limit          int64
	slice          time.Duration
	overdraftRatio int64
	tokens         int64
	sliceStart     time.Time
}

// NewStrict constructs a Strict bucket sized to limit tokens per slice, with
// the given overdraft ratio. The bucket starts fully replenished.
func NewStrict(clk clock.Clock, limit int64, slice time.Duration, overdraftRatio int64) *Strict {
	if overdraftRatio <= 0 {
		overdraftRatio = DefaultOverdraftRatio
	}
	if slice <= 0 {
		slice = DefaultTimeSlice
	}
	return &Strict{
		clk:            clk,
		limit:          limit,
		slice:          slice,
		overdraftRatio: overdraftRatio,
		tokens:         limit,
		sliceStart:     clk.Now(),
	}
}

// SetLimit changes the per-slice limit, taking effect from the next slice
// reset onward. Used by the strict worker's ramp-up curve to retarget the
// bucket without reconstructing it.
func (b *Strict) SetLimit(limit int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limit = limit
}

// Limit returns the current per-slice limit.
func (b *Strict) Limit() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit
}

// Deduct reports n tokens used. It returns 0 if the deduction (including any
// available overdraft) covers n, or the shortfall otherwise.
func (b *Strict) Deduct(n int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfExpired()
	b.tokens -= n
	overdraft := b.limit / b.overdraftRatio
	if b.tokens < -overdraft {
		shortfall := -overdraft - b.tokens
		b.tokens = -overdraft
		return shortfall
	}
	return 0
}

// IsThrottled reports whether the bucket is at or below zero tokens in the
// current slice.
func (b *Strict) IsThrottled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfExpired()
	return b.tokens <= 0
}

// Tokens returns the current token count, refreshing the slice first. Used
// by the strict worker as its end-of-run residual report.
func (b *Strict) Tokens() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfExpired()
	return b.tokens
}

// resetIfExpired snaps the bucket forward to the current slice if one or
// more full slices have elapsed since sliceStart, replenishing to exactly
// limit and discarding whatever overshoot (positive or negative) the prior
// slice left behind.
func (b *Strict) resetIfExpired() {
	now := b.clk.Now()
	elapsed := now.Sub(b.sliceStart)
	if elapsed < b.slice {
		return
	}
	elapsedSlices := int64(elapsed / b.slice)
	b.tokens = b.limit
	b.sliceStart = b.sliceStart.Add(time.Duration(elapsedSlices) * b.slice)
}
