// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package planner orchestrates goal decomposition and Monte Carlo tree
// search into executable plans.
//
// The planner sits between an agent loop and its environment. The agent
// hands in an opaque observation and a goal string; the planner asks its
// oracle for candidate subgoals and refines them with a fixed-budget
// search into an ordered action sequence. Rewards observed for executed
// actions feed back through UpdatePlan, which replans on failure.
//
// Planning never fails. Oracle trouble degrades to a deterministic
// fallback table and a childless search degrades to the raw subgoal
// list. The only errors surface at construction time, from invalid
// configuration.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianPlan/journal"
	"github.com/AleutianAI/AleutianPlan/llm"
	"github.com/AleutianAI/AleutianPlan/mcts"
	"github.com/AleutianAI/AleutianPlan/oracle"
)

var tracer = otel.Tracer("aleutianplan.planner")

// RecoveryGoal is the goal a negative reward replans against.
const RecoveryGoal = "recover from failure"

// Planner turns goals into ordered action sequences.
//
// Thread Safety: safe for concurrent use. Distinct Plan calls may run
// in parallel; each owns its search tree exclusively.
type Planner struct {
	config Config
	oracle oracle.Oracle
	engine *mcts.Engine
	logger *slog.Logger

	journal     journal.Journal
	ownsJournal bool

	// evaluator is consumed at construction when the engine is built.
	evaluator mcts.Evaluator

	mu         sync.Mutex
	lastPlanID string
}

// Option configures a Planner.
type Option func(*Planner)

// WithOracle injects an oracle, replacing the one the config would
// build. Tests use this to pin deterministic subgoals.
func WithOracle(o oracle.Oracle) Option {
	return func(p *Planner) {
		p.oracle = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithEvaluator replaces the search engine's default rollout evaluator.
func WithEvaluator(evaluator mcts.Evaluator) Option {
	return func(p *Planner) {
		p.evaluator = evaluator
	}
}

// WithJournal attaches an externally owned journal. The caller keeps
// responsibility for closing it.
func WithJournal(j journal.Journal) Option {
	return func(p *Planner) {
		p.journal = j
	}
}

// New validates cfg and builds a planner.
//
// Invalid configuration fails here, never later: Plan and UpdatePlan
// return no errors. The oracle is chosen per config unless WithOracle
// overrides it, and a config-enabled journal is opened best-effort; a
// journal that cannot open is logged and planning proceeds without it.
func New(cfg Config, opts ...Option) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Planner{
		config: cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "planner"))

	engineOpts := []mcts.EngineOption{mcts.WithLogger(p.logger)}
	if p.evaluator != nil {
		engineOpts = append(engineOpts, mcts.WithEvaluator(p.evaluator))
	}
	engine, err := mcts.NewEngine(cfg.SearchConfig(), engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("build search engine: %w", err)
	}
	p.engine = engine

	if p.oracle == nil {
		p.oracle = NewOracle(cfg, p.logger)
	}

	if p.journal == nil && cfg.Journal.Enabled {
		p.openJournal()
	}

	return p, nil
}

// NewOracle builds the oracle implementation cfg asks for: the remote
// backend-backed variant when subgoal generation is enabled and a
// backend is configured, the deterministic fallback table otherwise.
// Construction never fails; a backend that cannot be built degrades to
// the fallback with a warning.
func NewOracle(cfg Config, logger *slog.Logger) oracle.Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.SubgoalGeneration.Enabled || cfg.Oracle.Backend == "" {
		return oracle.NewFallbackOracle()
	}

	client, err := newBackendClient(cfg.Oracle)
	if err != nil {
		logger.Warn("oracle backend construction failed, using fallback table",
			slog.String("backend", cfg.Oracle.Backend),
			slog.String("error", err.Error()))
		return oracle.NewFallbackOracle()
	}
	return oracle.NewRemoteOracle(client, cfg.Oracle.remoteConfig(), oracle.WithLogger(logger))
}

// newBackendClient builds the llm client for a validated backend name.
func newBackendClient(cfg OracleConfig) (llm.Client, error) {
	switch cfg.Backend {
	case BackendOllama:
		return llm.NewOllamaClient(cfg.clientConfig()), nil
	case BackendOpenAI:
		return llm.NewOpenAIClient(cfg.clientConfig())
	default:
		return nil, fmt.Errorf("%w: unknown oracle backend %q", ErrInvalidConfig, cfg.Backend)
	}
}

// openJournal attaches the config-described journal. Each planner
// instance is its own journal session.
func (p *Planner) openJournal() {
	jcfg := journal.DefaultConfig()
	jcfg.SessionID = uuid.NewString()
	jcfg.Path = p.config.Journal.Path
	jcfg.InMemory = p.config.Journal.InMemory
	jcfg.AllowDegraded = true
	jcfg.Logger = p.logger

	jnl, err := journal.NewBadgerJournal(jcfg)
	if err != nil {
		p.logger.Warn("journal unavailable, planning continues without it",
			slog.String("error", err.Error()))
		return
	}
	p.journal = jnl
	p.ownsJournal = true
}

// Config returns the planner configuration.
func (p *Planner) Config() Config {
	return p.config
}

// Plan decomposes goal into subgoals and refines them into an ordered
// action sequence for the given observation.
//
// A disabled planner returns nil, as does a goal that yields no
// subgoals. Plan never returns an error; every failure inside the
// pipeline degrades to a usable answer.
func (p *Planner) Plan(ctx context.Context, observation any, goal string) []string {
	if !p.config.Enabled {
		return nil
	}
	return p.plan(ctx, observation, goal, journal.TriggerInitial)
}

func (p *Planner) plan(ctx context.Context, observation any, goal string, trigger journal.Trigger) []string {
	ctx, span := tracer.Start(ctx, "Planner.Plan",
		trace.WithAttributes(
			attribute.String("plan.goal", truncateForAttribute(goal, 100)),
			attribute.String("plan.trigger", string(trigger)),
		))
	defer span.End()

	planID := uuid.NewString()
	span.SetAttributes(attribute.String("plan.id", planID))
	logger := p.logger.With(slog.String("plan_id", planID))

	subgoals := p.oracle.GenerateSubgoals(ctx, goal, observation)
	if max := p.config.SubgoalGeneration.MaxSubgoals; len(subgoals) > max {
		subgoals = subgoals[:max]
	}
	if len(subgoals) == 0 {
		logger.Warn("no subgoals generated", slog.String("goal", goal))
		return nil
	}

	result := p.engine.Search(ctx, observation, subgoals)

	span.SetAttributes(attribute.Int("plan.len", len(result.Plan)))
	logger.Info("plan issued",
		slog.String("goal", goal),
		slog.String("trigger", string(trigger)),
		slog.Int("subgoals", len(subgoals)),
		slog.Int("plan_len", len(result.Plan)),
		slog.Float64("best_value", result.BestValue),
		slog.Duration("elapsed", result.Elapsed))

	p.setLastPlanID(planID)
	p.appendRecord(ctx, &journal.PlanRecord{
		PlanID:    planID,
		Goal:      goal,
		Plan:      result.Plan,
		Trigger:   trigger,
		CreatedAt: time.Now(),
	})

	return result.Plan
}

// UpdatePlan reacts to the reward observed for an executed action.
//
// A negative reward triggers an immediate recovery plan, returned to
// the caller. A non-negative reward returns nil: no new plan, keep
// executing the current one.
func (p *Planner) UpdatePlan(ctx context.Context, state any, executedAction string, reward float64) []string {
	ctx, span := tracer.Start(ctx, "Planner.UpdatePlan",
		trace.WithAttributes(
			attribute.String("plan.action", truncateForAttribute(executedAction, 100)),
			attribute.Float64("plan.reward", reward),
		))
	defer span.End()

	replanned := reward < 0 && p.config.Enabled

	p.appendRecord(ctx, &journal.RewardRecord{
		PlanID:    p.lastID(),
		Action:    executedAction,
		Reward:    reward,
		Replanned: replanned,
		CreatedAt: time.Now(),
	})

	if !replanned {
		return nil
	}

	p.logger.Info("negative reward, replanning",
		slog.String("action", executedAction),
		slog.Float64("reward", reward))

	return p.plan(ctx, state, RecoveryGoal, journal.TriggerReplan)
}

// AnalyzeTask delegates to the oracle. The oracle's fail-closed
// contract holds here too: the analysis is always usable.
func (p *Planner) AnalyzeTask(ctx context.Context, task string) oracle.TaskAnalysis {
	ctx, span := tracer.Start(ctx, "Planner.AnalyzeTask",
		trace.WithAttributes(attribute.String("plan.task", truncateForAttribute(task, 100))))
	defer span.End()

	return p.oracle.AnalyzeTask(ctx, task)
}

// Close releases resources the planner opened itself. A journal passed
// in through WithJournal stays open for its owner.
func (p *Planner) Close() error {
	if p.journal != nil && p.ownsJournal {
		return p.journal.Close()
	}
	return nil
}

// appendRecord writes rec to the journal when one is attached. Journal
// failures never affect planning output.
func (p *Planner) appendRecord(ctx context.Context, rec journal.Record) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Append(ctx, rec); err != nil {
		p.logger.Warn("journal append failed", slog.String("error", err.Error()))
	}
}

func (p *Planner) setLastPlanID(id string) {
	p.mu.Lock()
	p.lastPlanID = id
	p.mu.Unlock()
}

func (p *Planner) lastID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPlanID
}

// truncateForAttribute truncates a string for use in span attributes.
func truncateForAttribute(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
