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

package sampler

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"memstress/internal/bench/clock"
	"memstress/internal/bench/metrics"
)

func TestSamplerWritesLinesAtCadence(t *testing.T) {
	counters := metrics.NewCounters()
	path := filepath.Join(t.TempDir(), "rate.log")
	s := New(counters, clock.System{}, path)

	stop := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			time.Sleep(Interval)
			counters.BytesAllocated.Add(1024 * 1024)
		}
		close(stop)
	}()

	s.Run(stop)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) < 2 {
		t.Fatalf("expected at least 2 sampler lines, got %d", len(lines))
	}
	for _, line := range lines {
		parts := strings.Split(line, ", ")
		if len(parts) != 2 {
			t.Fatalf("line %q does not match 'elapsed, mbps' format", line)
		}
	}
}

func TestSamplerInvalidPathLogsAndReturns(t *testing.T) {
	counters := metrics.NewCounters()
	s := New(counters, clock.System{}, filepath.Join(t.TempDir(), "missing-dir", "rate.log"))

	done := make(chan struct{})
	go func() {
		s.Run(make(chan struct{}))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run should return immediately on an unopenable path")
	}
}
