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

// Package config parses and validates memstress's command-line flags
// (spec.md §6) into a Config the coordinator can run directly.
package config

import (
	"flag"
	"fmt"
	"io"

	"memstress/internal/bench/object"
)

// Config is the fully parsed and validated set of run parameters.
type Config struct {
	AllocRateMbps        float64
	HeapSizeMb           float64
	LongLivedMb          float64
	MidAgedMb            float64
	DurationSeconds      float64
	NumThreads           int
	MinObjectSize        int
	MaxObjectSize        int
	PruneRatioPerMinute  int64
	ReshuffleRatio       int
	UseCompressed        bool
	Smoothness           float64
	SmoothnessSet        bool
	RampUpSeconds        float64
	CSVPath              string
	RateLogPath          string
	Variant              object.Variant
	RunType              string
	MetricsAddr          string
	RedisAddr            string
	RedisKey             string
	Seed                 uint64
}

// variantFlag adapts object.Variant to flag.Value for the -o flag, accepting
// the single-letter spellings spec.md §6 documents.
type variantFlag struct{ v *object.Variant }

func (f variantFlag) String() string {
	if f.v == nil {
		return "p"
	}
	switch *f.v {
	case object.Weak:
		return "w"
	case object.Finalizable:
		return "f"
	default:
		return "p"
	}
}

func (f variantFlag) Set(s string) error {
	switch s {
	case "p", "plain":
		*f.v = object.Plain
	case "w", "weak":
		*f.v = object.Weak
	case "f", "finalizable":
		*f.v = object.Finalizable
	default:
		return fmt.Errorf("unknown object variant %q (want p, w, or f)", s)
	}
	return nil
}

// smoothnessFlag adapts a *float64 + "was it set" bool to flag.Value so -z's
// absence (meaning: use the strict worker) is distinguishable from an
// explicit -z 0 (meaning: bursty worker, smoothing disabled).
type smoothnessFlag struct {
	v   *float64
	set *bool
}

func (f smoothnessFlag) String() string {
	if f.v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *f.v)
}

func (f smoothnessFlag) Set(s string) error {
	var val float64
	if _, err := fmt.Sscanf(s, "%g", &val); err != nil {
		return fmt.Errorf("invalid smoothness %q: %w", s, err)
	}
	if val < 0 || val > 1 {
		return fmt.Errorf("smoothness %v out of range [0,1]", val)
	}
	*f.v = val
	*f.set = true
	return nil
}

// Parse parses args (excluding the program name) into a Config. On any
// parse or validation error, it returns a non-nil error; the caller is
// expected to print it alongside flag.Usage output and exit 1 (spec.md §6,
// §7).
func Parse(args []string, stderr io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("memstress", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg := &Config{Variant: object.Plain}

	fs.Float64Var(&cfg.AllocRateMbps, "a", 1024, "target allocation rate (MB/s)")
	fs.Float64Var(&cfg.HeapSizeMb, "h", 1024, "configured heap size (MB, recorded only)")
	fs.Float64Var(&cfg.LongLivedMb, "s", 64, "long-lived target size (MB)")
	fs.Float64Var(&cfg.MidAgedMb, "m", 64, "mid-aged target size (MB, survivor rings)")
	fs.Float64Var(&cfg.DurationSeconds, "d", 60, "run duration (s)")
	fs.IntVar(&cfg.NumThreads, "t", 4, "number of worker threads")
	fs.IntVar(&cfg.MinObjectSize, "n", 128, "min object size in bytes (inclusive)")
	fs.IntVar(&cfg.MaxObjectSize, "x", 1024, "max object size in bytes (exclusive)")
	fs.Int64Var(&cfg.PruneRatioPerMinute, "r", 50, "prune ratio per minute")
	fs.IntVar(&cfg.ReshuffleRatio, "f", 100, "reshuffle ratio")
	fs.BoolVar(&cfg.UseCompressed, "c", true, "assume compressed references")
	fs.Var(smoothnessFlag{&cfg.Smoothness, &cfg.SmoothnessSet}, "z", "smoothness factor in [0,1]; presence enables the bursty worker")
	fs.Float64Var(&cfg.RampUpSeconds, "p", 0, "ramp-up seconds (strict worker only)")
	fs.StringVar(&cfg.CSVPath, "l", "output.csv", "result CSV output path")
	fs.StringVar(&cfg.RateLogPath, "b", "", "per-100ms allocation-rate log path")
	fs.Var(variantFlag{&cfg.Variant}, "o", "object variant: p(lain) / w(eak) / f(inalizable)")
	fs.StringVar(&cfg.RunType, "u", "simple", "run type selector")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Prometheus exporter listen address (absent disables it)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "", "Redis address for fanning out result rows (absent disables it)")
	fs.StringVar(&cfg.RedisKey, "redis-key", "memstress:results", "Redis list key for result rows")
	var seed int64
	fs.Int64Var(&seed, "seed", 1, "base seed for per-worker PRNG streams")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Seed = uint64(seed)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	overhead := object.OverheadCompressed
	if !c.UseCompressed {
		overhead = object.OverheadNonCompressed
	}
	if int64(c.MinObjectSize) < overhead {
		return fmt.Errorf("config: min object size %d is below overhead %d", c.MinObjectSize, overhead)
	}
	if c.MaxObjectSize < c.MinObjectSize {
		return fmt.Errorf("config: max object size %d is below min object size %d", c.MaxObjectSize, c.MinObjectSize)
	}
	if c.NumThreads <= 0 {
		return fmt.Errorf("config: number of threads must be positive, got %d", c.NumThreads)
	}
	if c.DurationSeconds <= 0 {
		return fmt.Errorf("config: duration must be positive, got %v", c.DurationSeconds)
	}
	if c.RunType != "simple" && c.RunType != "ramp" && c.RunType != "bursty" {
		return fmt.Errorf("config: unknown run type %q", c.RunType)
	}
	return nil
}

// Overhead returns the per-object overhead constant this config selects.
func (c *Config) Overhead() int64 {
	if c.UseCompressed {
		return object.OverheadCompressed
	}
	return object.OverheadNonCompressed
}
