// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianPlan/llm"
	"github.com/AleutianAI/AleutianPlan/mcts"
	"github.com/AleutianAI/AleutianPlan/oracle"
)

// Oracle backends the planner knows how to construct. An empty backend
// means no remote oracle; the deterministic fallback table serves all
// subgoal requests.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// Config is the full planner configuration, loadable from files and
// the environment.
//
// Thread Safety: safe to read concurrently. Not safe to modify after
// creation.
type Config struct {
	// Enabled gates all planning. A disabled planner returns empty
	// plans without touching the oracle or the search engine.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MCTSSimulations is the fixed iteration budget per search.
	MCTSSimulations int `json:"mcts_simulations" yaml:"mcts_simulations"`

	// MaxDepth caps tree expansion depth.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// ExplorationConstant is the C in UCB1. Zero is legal.
	ExplorationConstant float64 `json:"exploration_constant" yaml:"exploration_constant"`

	// SubgoalGeneration controls how goals decompose into subgoals.
	SubgoalGeneration SubgoalConfig `json:"subgoal_generation" yaml:"subgoal_generation"`

	// Oracle configures the remote subgoal backend.
	Oracle OracleConfig `json:"oracle" yaml:"oracle"`

	// Journal configures the optional audit log of planning decisions.
	Journal JournalConfig `json:"journal" yaml:"journal"`
}

// SubgoalConfig contains subgoal generation settings.
type SubgoalConfig struct {
	// Enabled selects the remote oracle when a backend is configured.
	// Disabled, every request is answered from the fallback table.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MaxSubgoals caps the candidate actions handed to the search,
	// whichever oracle produced them.
	MaxSubgoals int `json:"max_subgoals" yaml:"max_subgoals"`
}

// OracleConfig contains remote oracle backend settings.
type OracleConfig struct {
	Backend        string       `json:"backend" yaml:"backend"`
	BaseURL        string       `json:"base_url" yaml:"base_url"`
	Model          string       `json:"model" yaml:"model"`
	APIKey         string       `json:"api_key" yaml:"api_key"`
	MaxTokens      int          `json:"max_tokens" yaml:"max_tokens"`
	Temperature    float32      `json:"temperature" yaml:"temperature"`
	TimeoutSeconds int          `json:"timeout_seconds" yaml:"timeout_seconds"`
	Prompts        PromptConfig `json:"prompts" yaml:"prompts"`
}

// PromptConfig contains the prompt templates. Each template carries one
// named slot: {goal} for subgoal generation, {task} for task analysis.
type PromptConfig struct {
	SubgoalGeneration string `json:"subgoal_generation" yaml:"subgoal_generation"`
	TaskAnalysis      string `json:"task_analysis" yaml:"task_analysis"`
}

// JournalConfig contains audit journal settings.
type JournalConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Path     string `json:"path" yaml:"path"`
	InMemory bool   `json:"in_memory" yaml:"in_memory"`
}

// DefaultConfig returns the default configuration: planning on, Ollama
// oracle against a local daemon, no journal.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		MCTSSimulations:     100,
		MaxDepth:            10,
		ExplorationConstant: 1.0,
		SubgoalGeneration: SubgoalConfig{
			Enabled:     true,
			MaxSubgoals: oracle.MaxSubgoals,
		},
		Oracle: OracleConfig{
			Backend:        BackendOllama,
			BaseURL:        "http://localhost:11434",
			Model:          "llama2",
			MaxTokens:      oracle.DefaultMaxTokens,
			Temperature:    oracle.DefaultTemperature,
			TimeoutSeconds: 30,
			Prompts: PromptConfig{
				SubgoalGeneration: oracle.DefaultSubgoalPrompt,
				TaskAnalysis:      oracle.DefaultAnalysisPrompt,
			},
		},
		Journal: JournalConfig{},
	}
}

// LoadConfig loads configuration with priority: env > file > defaults.
//
// The file may be YAML or JSON; a missing file is not an error and the
// defaults stand. The merged result is validated before it is returned.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}

	return nil
}

func loadConfigFromEnv(config *Config) {
	if v := os.Getenv("PLANNER_ENABLED"); v != "" {
		config.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PLANNER_MCTS_SIMULATIONS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.MCTSSimulations = i
		}
	}
	if v := os.Getenv("PLANNER_MAX_DEPTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.MaxDepth = i
		}
	}
	if v := os.Getenv("PLANNER_EXPLORATION_CONSTANT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.ExplorationConstant = f
		}
	}

	// Subgoal generation
	if v := os.Getenv("PLANNER_SUBGOALS_ENABLED"); v != "" {
		config.SubgoalGeneration.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PLANNER_MAX_SUBGOALS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.SubgoalGeneration.MaxSubgoals = i
		}
	}

	// Oracle backend
	if v := os.Getenv("PLANNER_ORACLE_BACKEND"); v != "" {
		config.Oracle.Backend = v
	}
	if v := os.Getenv("PLANNER_ORACLE_BASE_URL"); v != "" {
		config.Oracle.BaseURL = v
	}
	if v := os.Getenv("PLANNER_ORACLE_MODEL"); v != "" {
		config.Oracle.Model = v
	}
	if v := os.Getenv("PLANNER_ORACLE_API_KEY"); v != "" {
		config.Oracle.APIKey = v
	}
	if v := os.Getenv("PLANNER_ORACLE_MAX_TOKENS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Oracle.MaxTokens = i
		}
	}
	if v := os.Getenv("PLANNER_ORACLE_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			config.Oracle.Temperature = float32(f)
		}
	}
	if v := os.Getenv("PLANNER_ORACLE_TIMEOUT_SECONDS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Oracle.TimeoutSeconds = i
		}
	}

	// Journal
	if v := os.Getenv("PLANNER_JOURNAL_ENABLED"); v != "" {
		config.Journal.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PLANNER_JOURNAL_PATH"); v != "" {
		config.Journal.Path = v
	}
	if v := os.Getenv("PLANNER_JOURNAL_IN_MEMORY"); v != "" {
		config.Journal.InMemory = v == "true" || v == "1"
	}
}

// Validate checks that the configuration is usable. Every violation
// wraps ErrInvalidConfig and names the offending field.
func (c Config) Validate() error {
	if c.MCTSSimulations < 1 {
		return fmt.Errorf("%w: mcts_simulations must be >= 1, got %d", ErrInvalidConfig, c.MCTSSimulations)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("%w: max_depth must be >= 1, got %d", ErrInvalidConfig, c.MaxDepth)
	}
	if c.ExplorationConstant < 0 {
		return fmt.Errorf("%w: exploration_constant must be >= 0, got %g", ErrInvalidConfig, c.ExplorationConstant)
	}
	if c.SubgoalGeneration.MaxSubgoals < 1 {
		return fmt.Errorf("%w: subgoal_generation.max_subgoals must be >= 1, got %d",
			ErrInvalidConfig, c.SubgoalGeneration.MaxSubgoals)
	}

	switch c.Oracle.Backend {
	case "", BackendOllama, BackendOpenAI:
	default:
		return fmt.Errorf("%w: oracle.backend must be %q, %q, or empty, got %q",
			ErrInvalidConfig, BackendOllama, BackendOpenAI, c.Oracle.Backend)
	}
	if c.Oracle.Backend != "" {
		if c.Oracle.MaxTokens < 1 {
			return fmt.Errorf("%w: oracle.max_tokens must be >= 1, got %d", ErrInvalidConfig, c.Oracle.MaxTokens)
		}
		if c.Oracle.Temperature < 0 {
			return fmt.Errorf("%w: oracle.temperature must be >= 0, got %g", ErrInvalidConfig, c.Oracle.Temperature)
		}
		if c.Oracle.TimeoutSeconds < 1 {
			return fmt.Errorf("%w: oracle.timeout_seconds must be >= 1, got %d",
				ErrInvalidConfig, c.Oracle.TimeoutSeconds)
		}
	}

	if c.Journal.Enabled && !c.Journal.InMemory && c.Journal.Path == "" {
		return fmt.Errorf("%w: journal.path is required when the journal is enabled and not in-memory",
			ErrInvalidConfig)
	}

	return nil
}

// SearchConfig converts the planner settings into a search budget.
func (c Config) SearchConfig() mcts.SearchConfig {
	return mcts.SearchConfig{
		Simulations:         c.MCTSSimulations,
		MaxDepth:            c.MaxDepth,
		ExplorationConstant: c.ExplorationConstant,
	}
}

// clientConfig converts the oracle settings into an llm client config.
func (c OracleConfig) clientConfig() llm.ClientConfig {
	return llm.ClientConfig{
		BaseURL: c.BaseURL,
		Model:   c.Model,
		APIKey:  c.APIKey,
		Timeout: time.Duration(c.TimeoutSeconds) * time.Second,
	}
}

// remoteConfig converts the oracle settings into a remote oracle config.
func (c OracleConfig) remoteConfig() oracle.RemoteConfig {
	return oracle.RemoteConfig{
		SubgoalPrompt:  c.Prompts.SubgoalGeneration,
		AnalysisPrompt: c.Prompts.TaskAnalysis,
		MaxTokens:      c.MaxTokens,
		Temperature:    c.Temperature,
		Timeout:        time.Duration(c.TimeoutSeconds) * time.Second,
	}
}
