// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianPlan/llm"
	"github.com/AleutianAI/AleutianPlan/planner"
)

var modelsJSONOutput bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models the configured oracle backend serves",
	Run:   runModelsCommand,
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsJSONOutput, "json", false,
		"Output as JSON for scripting")
}

func runModelsCommand(cmd *cobra.Command, args []string) {
	client, err := backendClient()
	if err != nil {
		fatalf("%v", err)
	}

	models, err := client.ListModels(cmd.Context())
	if err != nil {
		fatalf("Failed to list models: %v", err)
	}

	if modelsJSONOutput {
		printJSON(models)
		return
	}
	if len(models) == 0 {
		fmt.Println("No models available.")
		return
	}
	for _, m := range models {
		fmt.Println(m)
	}
}

// backendClient builds the llm client the loaded configuration describes.
func backendClient() (llm.Client, error) {
	clientCfg := llm.ClientConfig{
		BaseURL: cfg.Oracle.BaseURL,
		Model:   cfg.Oracle.Model,
		APIKey:  cfg.Oracle.APIKey,
		Timeout: time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
	}

	switch cfg.Oracle.Backend {
	case planner.BackendOllama:
		return llm.NewOllamaClient(clientCfg), nil
	case planner.BackendOpenAI:
		return llm.NewOpenAIClient(clientCfg)
	case "":
		return nil, fmt.Errorf("no oracle backend configured (set oracle.backend or PLANNER_ORACLE_BACKEND)")
	default:
		return nil, fmt.Errorf("unknown oracle backend %q", cfg.Oracle.Backend)
	}
}
