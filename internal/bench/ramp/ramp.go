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

// Package ramp provides the time -> current-rate curves used by the strict
// worker's optional ramp-up period (spec.md §4.8).
package ramp

import "math"

// Curve maps elapsed seconds since the start of a run to an instantaneous
// target rate, given the eventual steady-state rate maxRate and the total
// ramp-up duration rampUpSeconds.
type Curve func(elapsedSeconds, rampUpSeconds, maxRate float64) float64

// Linear ramps the rate up proportionally to elapsed time.
func Linear(elapsedSeconds, rampUpSeconds, maxRate float64) float64 {
	if rampUpSeconds <= 0 {
		return maxRate
	}
	return elapsedSeconds * maxRate / rampUpSeconds
}

// Sinusoidal ramps the rate along a raised-cosine curve: zero at
// elapsed=0, maxRate at elapsed=rampUpSeconds, with a zero first derivative
// at both endpoints (so it doesn't kink the allocation rate at ramp
// start/end). This is the curve the strict worker uses.
func Sinusoidal(elapsedSeconds, rampUpSeconds, maxRate float64) float64 {
	if rampUpSeconds <= 0 {
		return maxRate
	}
	phase := elapsedSeconds/rampUpSeconds + 1
	return ((math.Cos(math.Pi*phase) + 1) / 2) * maxRate
}
