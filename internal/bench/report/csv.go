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

// Package report writes the end-of-run result row (spec.md §6) to a CSV
// file and, optionally, fans it out to a Redis list for cross-run
// aggregation.
package report

import (
	"fmt"
	"os"
)

// Row holds every field of the result CSV row, in output order.
type Row struct {
	HeapSizeMb                float64
	TargetAllocRateMbps       float64
	AchievedAllocRateMbps     float64
	LongLivedPlusMidAgedRatio float64
	UseCompressed             bool
	NumThreads                int
	MinSize                   int
	MaxSize                   int
	PruneRatio                int64
	ReshuffleRatio            int
}

// Line renders the row in the exact format spec.md §6 requires: comma-space
// separated fields with a trailing comma before the newline.
func (r Row) Line() string {
	return fmt.Sprintf("%g, %g, %g, %g, %t, %d, %d, %d, %d, %d,\n",
		r.HeapSizeMb,
		r.TargetAllocRateMbps,
		r.AchievedAllocRateMbps,
		r.LongLivedPlusMidAgedRatio,
		r.UseCompressed,
		r.NumThreads,
		r.MinSize,
		r.MaxSize,
		r.PruneRatio,
		r.ReshuffleRatio,
	)
}

// AppendCSV appends row's rendered line to path, creating the file if it
// doesn't exist.
func AppendCSV(path string, row Row) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("report: open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(row.Line()); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
