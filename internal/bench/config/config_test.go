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

package config

import (
	"io"
	"testing"

	"memstress/internal/bench/object"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil, io.Discard)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.AllocRateMbps != 1024 {
		t.Fatalf("AllocRateMbps = %v, want 1024", cfg.AllocRateMbps)
	}
	if cfg.Variant != object.Plain {
		t.Fatalf("Variant = %v, want Plain", cfg.Variant)
	}
	if cfg.SmoothnessSet {
		t.Fatalf("SmoothnessSet should be false when -z is absent")
	}
	if cfg.RunType != "simple" {
		t.Fatalf("RunType = %q, want simple", cfg.RunType)
	}
}

func TestParseSmoothnessPresenceTracked(t *testing.T) {
	cfg, err := Parse([]string{"-z", "0"}, io.Discard)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.SmoothnessSet {
		t.Fatalf("SmoothnessSet should be true when -z is supplied, even as 0")
	}
	if cfg.Smoothness != 0 {
		t.Fatalf("Smoothness = %v, want 0", cfg.Smoothness)
	}
}

func TestParseVariantFlag(t *testing.T) {
	cfg, err := Parse([]string{"-o", "w"}, io.Discard)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Variant != object.Weak {
		t.Fatalf("Variant = %v, want Weak", cfg.Variant)
	}
}

func TestParseUnknownVariantIsError(t *testing.T) {
	if _, err := Parse([]string{"-o", "bogus"}, io.Discard); err == nil {
		t.Fatalf("expected error for unknown -o value")
	}
}

func TestParseUnknownFlagIsError(t *testing.T) {
	if _, err := Parse([]string{"-not-a-flag"}, io.Discard); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
}

func TestParseUnknownRunTypeIsError(t *testing.T) {
	if _, err := Parse([]string{"-u", "bogus"}, io.Discard); err == nil {
		t.Fatalf("expected error for unknown -u value")
	}
}

func TestParseMinBelowOverheadIsError(t *testing.T) {
	if _, err := Parse([]string{"-n", "10"}, io.Discard); err == nil {
		t.Fatalf("expected error for min object size below overhead")
	}
}

func TestParseMaxBelowMinIsError(t *testing.T) {
	if _, err := Parse([]string{"-n", "200", "-x", "100"}, io.Discard); err == nil {
		t.Fatalf("expected error for max < min")
	}
}
