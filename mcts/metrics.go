// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mcts

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for search operations.
var (
	tracer = otel.Tracer("aleutianplan.mcts")
	meter  = otel.Meter("aleutianplan.mcts")
)

// Metrics for search operations.
var (
	searchesTotal  metric.Int64Counter
	searchDuration metric.Float64Histogram
	nodesCreated   metric.Int64Counter
	treeDepth      metric.Int64Histogram
	bestPathValue  metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		searchesTotal, err = meter.Int64Counter(
			"mcts_searches_total",
			metric.WithDescription("Total MCTS searches run"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		searchDuration, err = meter.Float64Histogram(
			"mcts_search_duration_seconds",
			metric.WithDescription("Wall-clock duration of one search"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesCreated, err = meter.Int64Counter(
			"mcts_nodes_created_total",
			metric.WithDescription("Total nodes created in search trees"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		treeDepth, err = meter.Int64Histogram(
			"mcts_tree_depth",
			metric.WithDescription("Final tree depth per search"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		bestPathValue, err = meter.Float64Histogram(
			"mcts_best_path_value",
			metric.WithDescription("Average value of the best first step"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordSearch records per-search metrics. A nil instrument means
// initMetrics failed; recording is then skipped silently.
func recordSearch(ctx context.Context, result Result, depth int) {
	if searchesTotal == nil {
		return
	}
	searchesTotal.Add(ctx, 1)
	searchDuration.Record(ctx, result.Elapsed.Seconds())
	nodesCreated.Add(ctx, int64(result.Nodes))
	treeDepth.Record(ctx, int64(depth))
	bestPathValue.Record(ctx, result.BestValue)
}
