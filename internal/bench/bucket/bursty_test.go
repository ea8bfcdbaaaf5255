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
	"testing"
	"time"

	"memstress/internal/bench/clock"
)

func TestBurstyFullGrant(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	b := NewBursty(fc, 1000, 100, time.Second)

	got, err := b.Take(600, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 600 {
		t.Fatalf("granted = %d, want 600", got)
	}
	if avail := b.Available(); avail != 400 {
		t.Fatalf("available = %v, want 400", avail)
	}
}

func TestBurstyPartialGrantWithMinimum(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	b := NewBursty(fc, 1000, 100, time.Second)

	// Drain down to 150 available.
	if _, err := b.Take(850, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	min := int64(100)
	got, err := b.Take(500, &min)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 150 {
		t.Fatalf("granted = %d, want 150 (all of remaining availability)", got)
	}
	if avail := b.Available(); avail != 0 {
		t.Fatalf("available after partial grant = %v, want 0", avail)
	}
}

func TestBurstyDeniesBelowMinimum(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	b := NewBursty(fc, 1000, 100, time.Second)

	if _, err := b.Take(999, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1 token left available; request more than that with a minimum above it.
	min := int64(50)
	got, err := b.Take(200, &min)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("granted = %d, want 0 (below minimum)", got)
	}
}

func TestBurstyInvalidMinimumArgument(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	b := NewBursty(fc, 1000, 100, time.Second)

	min := int64(50)
	if _, err := b.Take(10, &min); err != ErrRequestedBelowMinimum {
		t.Fatalf("expected ErrRequestedBelowMinimum, got %v", err)
	}
}

func TestBurstyRefillNeverExceedsCapacity(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	b := NewBursty(fc, 1000, 100, time.Second)

	if _, err := b.Take(1000, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fc.Advance(time.Hour) // plenty of refill time
	if avail := b.Available(); avail != 1000 {
		t.Fatalf("available after long refill = %v, want capped at capacity 1000", avail)
	}
}

func TestBurstyRefillAccumulatesOverTime(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	b := NewBursty(fc, 1000, 100, time.Second)

	if _, err := b.Take(1000, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fc.Advance(3 * time.Second)
	got, err := b.Take(300, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 300 {
		t.Fatalf("granted = %d, want 300 (refilled exactly 3s*100/s)", got)
	}
}
