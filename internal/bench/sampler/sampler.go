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

// Package sampler periodically differences the bytes-allocated counter into
// an instantaneous MB/s figure and appends it to a log file (spec.md §4.9,
// §6). It is entirely optional: a run with no -b path never starts one.
package sampler

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"memstress/internal/bench/clock"
	"memstress/internal/bench/metrics"
)

// Interval is the fixed sampling cadence.
const Interval = 100 * time.Millisecond

// Sampler writes one "elapsedSeconds, MBps\n" line per tick to its log
// file. A write failure logs a warning to stderr and stops the sampler; the
// run itself continues (spec.md §7).
type Sampler struct {
	counters *metrics.Counters
	clk      clock.Clock
	path     string
}

// New constructs a Sampler targeting path.
func New(counters *metrics.Counters, clk clock.Clock, path string) *Sampler {
	return &Sampler{counters: counters, clk: clk, path: path}
}

// Run ticks every Interval until stop is closed or an I/O error occurs,
// writing one differenced-rate line per tick.
func (s *Sampler) Run(stop <-chan struct{}) {
	f, err := os.Create(s.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sampler: open %s: %v\n", s.path, err)
		return
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	start := s.clk.Now()
	lastBytes := s.counters.BytesAllocated.Load()
	lastTick := start

	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			bytes := s.counters.BytesAllocated.Load()
			elapsedSinceLast := now.Sub(lastTick).Seconds()
			var mbps float64
			if elapsedSinceLast > 0 {
				mbps = float64(bytes-lastBytes) / (1024 * 1024) / elapsedSinceLast
			}
			lastBytes = bytes
			lastTick = now

			line := fmt.Sprintf("%.2f, %.2f\n", now.Sub(start).Seconds(), mbps)
			if _, err := w.WriteString(line); err != nil {
				fmt.Fprintf(os.Stderr, "sampler: write %s: %v\n", s.path, err)
				return
			}
			if err := w.Flush(); err != nil {
				fmt.Fprintf(os.Stderr, "sampler: flush %s: %v\n", s.path, err)
				return
			}
		}
	}
}
