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
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianPlan/llm"
)

// Default prompt templates and sampling settings for the remote oracle.
const (
	// DefaultSubgoalPrompt asks the backend for a short decomposition.
	// "{goal}" is replaced with the caller's goal text.
	DefaultSubgoalPrompt = "Generate 3-5 specific subgoals for: {goal}"

	// DefaultAnalysisPrompt asks the backend for the key steps of a task.
	// "{task}" is replaced with the caller's task text.
	DefaultAnalysisPrompt = "Analyze the current task: {task}. What are the key steps needed?"

	// DefaultMaxTokens bounds completions; subgoal lists are short.
	DefaultMaxTokens = 128

	// DefaultTemperature keeps decompositions varied but on-task.
	DefaultTemperature float32 = 0.7
)

// RemoteConfig carries the prompt templates and sampling settings for a
// RemoteOracle. Zero values fall back to the package defaults.
type RemoteConfig struct {
	// SubgoalPrompt is the template for subgoal generation. It must
	// contain the "{goal}" substitution slot.
	SubgoalPrompt string `json:"subgoal_prompt" yaml:"subgoal_prompt"`

	// AnalysisPrompt is the template for task analysis. It must contain
	// the "{task}" substitution slot.
	AnalysisPrompt string `json:"analysis_prompt" yaml:"analysis_prompt"`

	// MaxTokens bounds every backend completion.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature is the backend sampling temperature.
	Temperature float32 `json:"temperature" yaml:"temperature"`

	// Timeout bounds every backend call. Zero means llm.DefaultTimeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// RemoteOracle asks a text-generation backend to decompose goals and
// analyze tasks. It honors the fail-closed contract by degrading to the
// FallbackOracle rule table whenever the backend is unreachable, errors,
// times out, or answers with text that parses to nothing.
//
// Construction never fails: if the availability probe comes back
// negative, the oracle marks itself unavailable and routes every call to
// the fallback until the process restarts.
//
// Thread Safety: safe for concurrent use. Availability is an atomic
// flag and the backend client is required to be concurrency-safe.
type RemoteOracle struct {
	client   llm.Client
	fallback *FallbackOracle
	logger   *slog.Logger

	subgoalPrompt  string
	analysisPrompt string
	maxTokens      int
	temperature    float32
	timeout        time.Duration

	available atomic.Bool
}

// RemoteOption customizes a RemoteOracle.
type RemoteOption func(*RemoteOracle)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) RemoteOption {
	return func(o *RemoteOracle) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewRemoteOracle creates a backend-backed oracle over client.
//
// The constructor probes the backend once with a short deadline. A
// failed probe (or a nil client) does not fail construction; it only
// marks the oracle unavailable so every call degrades to the fallback.
func NewRemoteOracle(client llm.Client, cfg RemoteConfig, opts ...RemoteOption) *RemoteOracle {
	o := &RemoteOracle{
		client:         client,
		fallback:       NewFallbackOracle(),
		logger:         slog.Default(),
		subgoalPrompt:  cfg.SubgoalPrompt,
		analysisPrompt: cfg.AnalysisPrompt,
		maxTokens:      cfg.MaxTokens,
		temperature:    cfg.Temperature,
		timeout:        cfg.Timeout,
	}
	if o.subgoalPrompt == "" {
		o.subgoalPrompt = DefaultSubgoalPrompt
	}
	if o.analysisPrompt == "" {
		o.analysisPrompt = DefaultAnalysisPrompt
	}
	if o.maxTokens <= 0 {
		o.maxTokens = DefaultMaxTokens
	}
	if o.temperature <= 0 {
		o.temperature = DefaultTemperature
	}
	if o.timeout <= 0 {
		o.timeout = llm.DefaultTimeout
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := initMetrics(); err != nil {
		o.logger.Warn("oracle metrics unavailable", slog.String("error", err.Error()))
	}

	if client == nil {
		o.logger.Warn("no backend client configured, subgoal generation will use the fallback table")
		return o
	}

	probeCtx, cancel := context.WithTimeout(context.Background(), llm.ProbeTimeout)
	defer cancel()
	if client.IsAvailable(probeCtx) {
		o.available.Store(true)
	} else {
		o.logger.Warn("backend unavailable, subgoal generation will use the fallback table")
	}
	return o
}

// Available reports whether the construction-time probe found a live
// backend. When false, every call answers from the fallback table.
func (o *RemoteOracle) Available() bool {
	return o.available.Load()
}

// GenerateSubgoals asks the backend to decompose goal and parses the
// response into at most MaxSubgoals entries. Backend errors and
// unusable responses degrade to the fallback table; no failure is ever
// returned to the caller.
func (o *RemoteOracle) GenerateSubgoals(ctx context.Context, goal string, state any) []string {
	ctx, span := tracer.Start(ctx, "RemoteOracle.GenerateSubgoals",
		trace.WithAttributes(attribute.String("oracle.goal", goal)))
	defer span.End()

	if !o.available.Load() {
		recordFallback(ctx, "unavailable")
		return o.fallback.GenerateSubgoals(ctx, goal, state)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	response, err := o.client.Generate(callCtx, o.buildSubgoalPrompt(goal, state), o.params())
	recordBackendCall(ctx, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend call failed")
		o.logger.Warn("subgoal generation failed, using fallback",
			slog.String("goal", goal),
			slog.String("error", err.Error()))
		recordFallback(ctx, "error")
		return o.fallback.GenerateSubgoals(ctx, goal, state)
	}

	subgoals := ParseSubgoals(response)
	if len(subgoals) == 0 {
		o.logger.Warn("backend returned no usable subgoals, using fallback",
			slog.String("goal", goal))
		recordFallback(ctx, "empty")
		return o.fallback.GenerateSubgoals(ctx, goal, state)
	}

	span.SetAttributes(attribute.Int("oracle.subgoals", len(subgoals)))
	return subgoals
}

// AnalyzeTask asks the backend to analyze task and derives the
// complexity and step estimates from its answer. Backend errors and
// empty responses degrade to the fixed fallback analysis.
func (o *RemoteOracle) AnalyzeTask(ctx context.Context, task string) TaskAnalysis {
	ctx, span := tracer.Start(ctx, "RemoteOracle.AnalyzeTask",
		trace.WithAttributes(attribute.String("oracle.task", task)))
	defer span.End()

	if !o.available.Load() {
		recordFallback(ctx, "unavailable")
		return o.fallback.AnalyzeTask(ctx, task)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	prompt := strings.ReplaceAll(o.analysisPrompt, "{task}", task)
	response, err := o.client.Generate(callCtx, prompt, o.params())
	recordBackendCall(ctx, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend call failed")
		o.logger.Warn("task analysis failed, using fallback",
			slog.String("task", task),
			slog.String("error", err.Error()))
		recordFallback(ctx, "error")
		return o.fallback.AnalyzeTask(ctx, task)
	}

	rationale := strings.TrimSpace(response)
	if rationale == "" {
		recordFallback(ctx, "empty")
		return o.fallback.AnalyzeTask(ctx, task)
	}

	return TaskAnalysis{
		Task:           task,
		Rationale:      rationale,
		Complexity:     estimateComplexity(rationale),
		EstimatedSteps: estimateSteps(rationale),
	}
}

// buildSubgoalPrompt fills the template and appends the state snapshot
// when one was provided.
func (o *RemoteOracle) buildSubgoalPrompt(goal string, state any) string {
	prompt := strings.ReplaceAll(o.subgoalPrompt, "{goal}", goal)
	if state != nil {
		prompt += fmt.Sprintf("\n\nCurrent state: %v", state)
	}
	return prompt
}

// params builds the per-call sampling parameters.
func (o *RemoteOracle) params() llm.GenerationParams {
	maxTokens := o.maxTokens
	temperature := o.temperature
	return llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
}

var _ Oracle = (*RemoteOracle)(nil)
