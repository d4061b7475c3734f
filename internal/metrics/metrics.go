// Reddit-scheduler is a service that submits scheduled posts to Reddit.
// Copyright (C) 2026 Reddit-scheduler contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package metrics exposes Prometheus collectors for the scheduler daemon:
// submission outcomes, RPC traffic, and store command-queue pressure.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeDryRun = "dry_run"
)

var (
	mu  sync.RWMutex
	reg *prometheus.Registry

	submissions     *prometheus.CounterVec
	rpcRequests     *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	queueDepth      prometheus.Gauge
)

func init() {
	resetLocked()
}

// Reset clears and reinitializes all collectors. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	resetLocked()
}

func resetLocked() {
	reg = prometheus.NewRegistry()

	submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reddit_scheduler_submissions_total",
		Help: "Submission attempts by post type and outcome.",
	}, []string{"type", "outcome"})

	rpcRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reddit_scheduler_rpc_requests_total",
		Help: "RPC requests handled by operation.",
	}, []string{"operation"})

	commandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reddit_scheduler_store_command_seconds",
		Help:    "Store command execution time by command kind.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reddit_scheduler_store_queue_depth",
		Help: "Commands waiting in the store queue.",
	})

	reg.MustRegister(submissions, rpcRequests, commandDuration, queueDepth)
}

// Handler returns an HTTP handler exposing the metrics in Prometheus format.
func Handler() http.Handler {
	mu.RLock()
	registry := reg
	mu.RUnlock()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveSubmission records one submission attempt.
func ObserveSubmission(postType, outcome string) {
	mu.RLock()
	defer mu.RUnlock()
	if submissions != nil {
		submissions.WithLabelValues(postType, outcome).Inc()
	}
}

// IncRPCRequest counts one handled RPC request.
func IncRPCRequest(operation string) {
	mu.RLock()
	defer mu.RUnlock()
	if rpcRequests != nil {
		rpcRequests.WithLabelValues(operation).Inc()
	}
}

// ObserveCommand records the execution time of one store command.
func ObserveCommand(kind string, d time.Duration) {
	mu.RLock()
	defer mu.RUnlock()
	if commandDuration != nil {
		commandDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// SetQueueDepth publishes the store command-queue length.
func SetQueueDepth(n int) {
	mu.RLock()
	defer mu.RUnlock()
	if queueDepth != nil {
		queueDepth.Set(float64(n))
	}
}
