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

package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exposes a Counters handle as Prometheus gauges/counters on a
// dedicated HTTP server, mirroring the shape of the teacher's opt-in churn
// telemetry (internal/ratelimiter/telemetry/churn): disabled unless an
// address is configured, registered into its own private registry so
// repeated test construction never collides with the global default
// registry.
type Exporter struct {
	counters *Counters

	registry *prometheus.Registry

	bytesAllocated    prometheus.CounterFunc
	currentStoreBytes prometheus.GaugeFunc
	finalizedTotal    prometheus.CounterFunc
	throttledTotal    prometheus.CounterFunc
	promotionAttempts prometheus.CounterFunc
	promotionAdmits   prometheus.CounterFunc

	srv *http.Server
}

// NewExporter builds an Exporter wired to counters. Call Start to actually
// serve /metrics.
func NewExporter(counters *Counters) *Exporter {
	reg := prometheus.NewRegistry()
	e := &Exporter{counters: counters, registry: reg}

	e.bytesAllocated = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "memstress_bytes_allocated_total",
		Help: "Cumulative heap footprint of every allocated object.",
	}, func() float64 { return float64(counters.BytesAllocated.Load()) })

	e.currentStoreBytes = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "memstress_store_bytes",
		Help: "Current tracked size of the long-lived object store.",
	}, func() float64 { return float64(counters.CurrentStoreSize.Load()) })

	e.finalizedTotal = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "memstress_finalized_objects_total",
		Help: "Number of finalizable-variant objects whose reclaim hook has fired.",
	}, func() float64 { return float64(counters.FinalizedCount.Load()) })

	e.throttledTotal = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "memstress_throttled_ticks_total",
		Help: "Number of worker iterations observed as throttled.",
	}, func() float64 { return float64(counters.ThrottledTicks.Load()) })

	e.promotionAttempts = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "memstress_promotion_attempts_total",
		Help: "Number of promotion sub-protocol attempts across all workers.",
	}, func() float64 { return float64(counters.PromotionAttempts.Load()) })

	e.promotionAdmits = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "memstress_promotion_admits_total",
		Help: "Number of promotion sub-protocol attempts admitted by the store.",
	}, func() float64 { return float64(counters.PromotionAdmits.Load()) })

	reg.MustRegister(
		e.bytesAllocated,
		e.currentStoreBytes,
		e.finalizedTotal,
		e.throttledTotal,
		e.promotionAttempts,
		e.promotionAdmits,
	)
	return e
}

// Start begins serving /metrics on addr in a background goroutine. Bind
// errors are sent on the returned channel (buffered, non-blocking).
func (e *Exporter) Start(addr string) <-chan error {
	errc := make(chan error, 1)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	e.srv = &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := e.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()
	return errc
}

// Stop gracefully shuts the exporter's HTTP server down.
func (e *Exporter) Stop(ctx context.Context) error {
	if e.srv == nil {
		return nil
	}
	return e.srv.Shutdown(ctx)
}
