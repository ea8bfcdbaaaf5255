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

package coordinator

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"memstress/internal/bench/config"
)

func parseOrFatal(t *testing.T, args []string) *config.Config {
	t.Helper()
	cfg, err := config.Parse(args, io.Discard)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}

func TestRunStrictWorkerEndToEnd(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "output.csv")
	cfg := parseOrFatal(t, []string{
		"-a", "4", "-h", "16", "-s", "2", "-m", "2",
		"-d", "0.2", "-t", "2", "-n", "64", "-x", "256",
		"-r", "50", "-f", "100", "-l", csvPath,
	})

	code := Run(context.Background(), cfg)
	if code != 0 {
		t.Fatalf("Run exit code = %d, want 0", code)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var lines int
	var last string
	for scanner.Scan() {
		lines++
		last = scanner.Text()
	}
	if lines != 1 {
		t.Fatalf("expected exactly 1 CSV row, got %d", lines)
	}
	if !strings.HasSuffix(last, ",") {
		t.Fatalf("CSV row should end with a trailing comma, got %q", last)
	}
	fields := strings.Split(last, ", ")
	if len(fields) != 10 {
		t.Fatalf("expected 10 comma-space-separated fields (the last ending in the trailing comma), got %d: %q", len(fields), last)
	}
}

func TestRunBurstyWorkerEndToEnd(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "output.csv")
	cfg := parseOrFatal(t, []string{
		"-a", "4", "-h", "16", "-s", "2", "-m", "2",
		"-d", "0.2", "-t", "2", "-n", "64", "-x", "256",
		"-z", "0.5", "-l", csvPath,
	})

	code := Run(context.Background(), cfg)
	if code != 0 {
		t.Fatalf("Run exit code = %d, want 0", code)
	}
}

func TestRunWithRateLog(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "output.csv")
	ratePath := filepath.Join(t.TempDir(), "rate.log")
	cfg := parseOrFatal(t, []string{
		"-a", "4", "-h", "16", "-s", "2", "-m", "2",
		"-d", "0.3", "-t", "1", "-n", "64", "-x", "256",
		"-l", csvPath, "-b", ratePath,
	})

	code := Run(context.Background(), cfg)
	if code != 0 {
		t.Fatalf("Run exit code = %d, want 0", code)
	}
	if _, err := os.Stat(ratePath); err != nil {
		t.Fatalf("expected rate log to be created: %v", err)
	}
}
