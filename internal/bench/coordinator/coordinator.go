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

// Package coordinator wires the config, store, workers, sampler, and result
// reporting together into one run (spec.md §4.9).
package coordinator

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"memstress/internal/bench/clock"
	"memstress/internal/bench/config"
	"memstress/internal/bench/metrics"
	"memstress/internal/bench/object"
	"memstress/internal/bench/report"
	"memstress/internal/bench/sampler"
	"memstress/internal/bench/store"
	"memstress/internal/bench/worker"
)

const bytesPerMb = 1024 * 1024

// shutdownTimeout bounds how long Run waits for workers to exit after their
// context is done (spec.md §5: "waits up to 60s").
const shutdownTimeout = 60 * time.Second

// Run executes one full memstress run per cfg and returns the process exit
// code (spec.md §6, §7: 0 normal, 1 on worker error).
func Run(ctx context.Context, cfg *config.Config) int {
	clk := clock.System{}
	counters := metrics.NewCounters()

	var metricsExporter *metrics.Exporter
	if cfg.MetricsAddr != "" {
		metricsExporter = metrics.NewExporter(counters)
		errCh := metricsExporter.Start(cfg.MetricsAddr)
		go func() {
			if err := <-errCh; err != nil {
				log.Printf("coordinator: metrics exporter: %v", err)
			}
		}()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsExporter.Stop(stopCtx); err != nil {
				log.Printf("coordinator: metrics exporter shutdown: %v", err)
			}
		}()
	}

	storeRng := rand.New(rand.NewPCG(cfg.Seed, 0xC0FFEE))
	st := store.New(store.Config{
		SizeLimit:           int64(cfg.LongLivedMb * bytesPerMb),
		GroupSize:           store.DefaultGroupSize,
		PruneRatioPerMinute: cfg.PruneRatioPerMinute,
		ReshuffleRatio:      cfg.ReshuffleRatio,
	}, clk, storeRng, counters)
	st.Start()

	var samplerStop chan struct{}
	if cfg.RateLogPath != "" {
		samplerStop = make(chan struct{})
		s := sampler.New(counters, clk, cfg.RateLogPath)
		go s.Run(samplerStop)
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.DurationSeconds*float64(time.Second)))
	defer cancel()

	runErr := runWorkers(runCtx, cfg, st, clk, counters)

	if samplerStop != nil {
		close(samplerStop)
	}
	st.StopAndReturnSize()

	if runErr != nil {
		log.Printf("coordinator: worker error: %v", runErr)
		return 1
	}

	elapsed := cfg.DurationSeconds
	achievedMbps := float64(counters.BytesAllocated.Load()) / bytesPerMb / elapsed

	row := report.Row{
		HeapSizeMb:                cfg.HeapSizeMb,
		TargetAllocRateMbps:       cfg.AllocRateMbps,
		AchievedAllocRateMbps:     achievedMbps,
		LongLivedPlusMidAgedRatio: (cfg.LongLivedMb + cfg.MidAgedMb) / cfg.HeapSizeMb,
		UseCompressed:             cfg.UseCompressed,
		NumThreads:                cfg.NumThreads,
		MinSize:                   cfg.MinObjectSize,
		MaxSize:                   cfg.MaxObjectSize,
		PruneRatio:                cfg.PruneRatioPerMinute,
		ReshuffleRatio:            cfg.ReshuffleRatio,
	}
	if err := report.AppendCSV(cfg.CSVPath, row); err != nil {
		log.Printf("coordinator: %v", err)
		return 1
	}

	if cfg.RedisAddr != "" {
		pub := report.NewRedisPublisher(cfg.RedisAddr, cfg.RedisKey)
		defer pub.Close()
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pubCancel()
		if err := pub.Publish(pubCtx, row); err != nil {
			log.Printf("coordinator: redis publish: %v", err)
		}
	}

	return 0
}

// runsBursty reports whether this run should use the bursty worker variant:
// -z was supplied, regardless of run type, or -u explicitly requested it.
func runsBursty(cfg *config.Config) bool {
	return cfg.SmoothnessSet || cfg.RunType == "bursty"
}

func runWorkers(ctx context.Context, cfg *config.Config, st *store.Store, clk clock.Clock, counters *metrics.Counters) error {
	perWorkerRate := int64(cfg.AllocRateMbps * bytesPerMb / float64(cfg.NumThreads))

	expectedAvgSize := float64(cfg.MinObjectSize+cfg.MaxObjectSize) / 2
	ringBytesPerWorker := cfg.MidAgedMb * bytesPerMb / float64(cfg.NumThreads)
	ringLen := int(ringBytesPerWorker / expectedAvgSize)
	if ringLen < 1 {
		ringLen = 1
	}

	rampUpSeconds := cfg.RampUpSeconds
	if cfg.RunType == "ramp" && rampUpSeconds == 0 {
		rampUpSeconds = 1
	}

	var wg sync.WaitGroup
	errCh := make(chan error, cfg.NumThreads)

	for i := 0; i < cfg.NumThreads; i++ {
		factory := object.NewFactory(rand.New(rand.NewPCG(cfg.Seed, uint64(i)+1)), counters, cfg.Overhead(), cfg.Variant)

		wg.Add(1)
		if runsBursty(cfg) {
			w := worker.NewBurstyWorker(worker.BurstyConfig{
				RateBytesPerSec: perWorkerRate,
				MinObjectSize:   cfg.MinObjectSize,
				MaxObjectSize:   cfg.MaxObjectSize,
				RingLength:      ringLen,
				Smoothness:      cfg.Smoothness,
			}, factory, st, clk, rand.New(rand.NewPCG(cfg.Seed, uint64(i)+1_000_000)), counters)

			go func() {
				defer wg.Done()
				if _, err := w.Run(ctx); err != nil {
					errCh <- err
				}
			}()
		} else {
			w := worker.NewStrictWorker(worker.StrictConfig{
				RateBytesPerSec: perWorkerRate,
				MinObjectSize:   cfg.MinObjectSize,
				MaxObjectSize:   cfg.MaxObjectSize,
				RingLength:      ringLen,
				RampUpSeconds:   rampUpSeconds,
			}, factory, st, clk, counters)

			go func() {
				defer wg.Done()
				if _, err := w.Run(ctx); err != nil {
					errCh <- err
				}
			}()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownTimeout + time.Duration(cfg.DurationSeconds*float64(time.Second))):
		fmt.Fprintln(os.Stderr, "coordinator: worker pool shutdown timed out after 60s")
	}

	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}
