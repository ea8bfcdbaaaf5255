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

// Command memstress drives a managed memory runtime at a configurable
// allocation rate while maintaining a configurable live working set, to
// characterise its reclamation pauses, throughput ceiling, and barrier
// behavior under sustained, reproducible pressure.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"memstress/internal/bench/config"
	"memstress/internal/bench/coordinator"
)

func main() {
	cfg, err := config.Parse(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "memstress:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(coordinator.Run(ctx, cfg))
}
