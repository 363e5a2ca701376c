// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for oracle operations.
var (
	tracer = otel.Tracer("aleutianplan.oracle")
	meter  = otel.Meter("aleutianplan.oracle")
)

// Metrics for backend calls and fallback degradation.
var (
	backendCalls  metric.Int64Counter
	callDuration  metric.Float64Histogram
	fallbackTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		backendCalls, err = meter.Int64Counter(
			"oracle_backend_calls_total",
			metric.WithDescription("Backend completion calls by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		callDuration, err = meter.Float64Histogram(
			"oracle_backend_call_duration_seconds",
			metric.WithDescription("Wall-clock duration of one backend call"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		fallbackTotal, err = meter.Int64Counter(
			"oracle_fallback_total",
			metric.WithDescription("Requests answered from the fallback table, by reason"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordBackendCall records one completed backend call. A nil instrument
// means initMetrics failed; recording is then skipped silently.
func recordBackendCall(ctx context.Context, elapsed time.Duration, err error) {
	if backendCalls == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	backendCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	callDuration.Record(ctx, elapsed.Seconds())
}

// recordFallback records one request degraded to the fallback table.
func recordFallback(ctx context.Context, reason string) {
	if fallbackTotal == nil {
		return
	}
	fallbackTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
