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
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianPlan/llm"
)

// TestNewRemoteOracle_ProbeFailureDoesNotFail verifies a dead backend
// never fails construction; it only routes calls to the fallback.
func TestNewRemoteOracle_ProbeFailureDoesNotFail(t *testing.T) {
	client := llm.NewMockClient().WithAvailable(false)

	o := NewRemoteOracle(client, RemoteConfig{})
	require.NotNil(t, o)
	assert.False(t, o.Available())

	got := o.GenerateSubgoals(context.Background(), "collect wood", nil)
	assert.Equal(t, []string{"find trees", "chop wood", "gather resources", "return to base"}, got)

	// The probe uses IsAvailable only; no completion call may be issued.
	assert.Zero(t, client.CallCount())
}

// TestNewRemoteOracle_NilClient verifies construction tolerates a
// missing backend entirely.
func TestNewRemoteOracle_NilClient(t *testing.T) {
	o := NewRemoteOracle(nil, RemoteConfig{})
	require.NotNil(t, o)
	assert.False(t, o.Available())

	got := o.GenerateSubgoals(context.Background(), "defeat zombie", nil)
	assert.Equal(t, []string{"find weapon", "approach enemy", "attack", "retreat if needed"}, got)

	analysis := o.AnalyzeTask(context.Background(), "defeat zombie")
	assert.Equal(t, ComplexityMedium, analysis.Complexity)
}

// TestRemoteOracle_GenerateSubgoals_ParsesResponse verifies the happy
// path: backend text is parsed, not the fallback table.
func TestRemoteOracle_GenerateSubgoals_ParsesResponse(t *testing.T) {
	client := llm.NewMockClient().
		QueueResponse("1. Scout the area\n2. Build defenses\n3. Stockpile food")

	o := NewRemoteOracle(client, RemoteConfig{})
	require.True(t, o.Available())

	got := o.GenerateSubgoals(context.Background(), "fortify the base", nil)
	assert.Equal(t, []string{"Scout the area", "Build defenses", "Stockpile food"}, got)

	assert.Equal(t, 1, client.CallCount())
	assert.Contains(t, client.LastPrompt(), "fortify the base")
	require.NoError(t, client.Verify())
}

// TestRemoteOracle_GenerateSubgoals_TruncatesToMax verifies overlong
// backend lists are capped.
func TestRemoteOracle_GenerateSubgoals_TruncatesToMax(t *testing.T) {
	client := llm.NewMockClient().
		QueueResponse("1. first step\n2. second step\n3. third step\n4. fourth step\n5. fifth step\n6. sixth step\n7. seventh step")

	o := NewRemoteOracle(client, RemoteConfig{})

	got := o.GenerateSubgoals(context.Background(), "explore", nil)
	assert.Len(t, got, MaxSubgoals)
}

// TestRemoteOracle_GenerateSubgoals_ErrorFallsBack verifies backend
// errors degrade to the rule table instead of surfacing.
func TestRemoteOracle_GenerateSubgoals_ErrorFallsBack(t *testing.T) {
	client := llm.NewMockClient().WithError(errors.New("backend down"))

	o := NewRemoteOracle(client, RemoteConfig{})
	require.True(t, o.Available())

	got := o.GenerateSubgoals(context.Background(), "collect wood", nil)
	assert.Equal(t, []string{"find trees", "chop wood", "gather resources", "return to base"}, got)
}

// TestRemoteOracle_GenerateSubgoals_EmptyResponseFallsBack verifies an
// unusable response counts as zero subgoals and degrades.
func TestRemoteOracle_GenerateSubgoals_EmptyResponseFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t  "},
		{"all fragments too short", "1. ok\n2. no\n- a"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := llm.NewMockClient().SetDefaultResponse(tc.response)
			o := NewRemoteOracle(client, RemoteConfig{})

			got := o.GenerateSubgoals(context.Background(), "place furnace", nil)
			assert.Equal(t, []string{"collect stone", "find location", "place building", "verify placement"}, got)
		})
	}
}

// TestRemoteOracle_PromptTemplate verifies the substitution slot and
// the optional state suffix.
func TestRemoteOracle_PromptTemplate(t *testing.T) {
	client := llm.NewMockClient().SetDefaultResponse("1. find weapon\n2. attack")
	cfg := RemoteConfig{SubgoalPrompt: "Decompose: {goal}"}

	o := NewRemoteOracle(client, cfg)

	o.GenerateSubgoals(context.Background(), "defeat zombie", nil)
	assert.Equal(t, "Decompose: defeat zombie", client.LastPrompt())

	o.GenerateSubgoals(context.Background(), "defeat zombie", "health=3 night=true")
	assert.True(t, strings.HasPrefix(client.LastPrompt(), "Decompose: defeat zombie"))
	assert.Contains(t, client.LastPrompt(), "Current state: health=3 night=true")
}

// TestRemoteOracle_SamplingParams verifies config values reach the
// backend call.
func TestRemoteOracle_SamplingParams(t *testing.T) {
	client := llm.NewMockClient().SetDefaultResponse("1. find food\n2. find shelter")
	cfg := RemoteConfig{MaxTokens: 64, Temperature: 0.2}

	o := NewRemoteOracle(client, cfg)
	o.GenerateSubgoals(context.Background(), "survive", nil)

	calls := client.GetCalls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Params.MaxTokens)
	require.NotNil(t, calls[0].Params.Temperature)
	assert.Equal(t, 64, *calls[0].Params.MaxTokens)
	assert.Equal(t, float32(0.2), *calls[0].Params.Temperature)
}

// TestRemoteOracle_AnalyzeTask_DerivesEstimates verifies complexity and
// step estimation run against the backend rationale.
func TestRemoteOracle_AnalyzeTask_DerivesEstimates(t *testing.T) {
	rationale := "First find wood, then craft a pickaxe, then place a workbench near the cave entrance"
	client := llm.NewMockClient().QueueResponse(rationale)

	o := NewRemoteOracle(client, RemoteConfig{})

	got := o.AnalyzeTask(context.Background(), "make wood_pickaxe")
	assert.Equal(t, "make wood_pickaxe", got.Task)
	assert.Equal(t, rationale, got.Rationale)
	assert.Equal(t, ComplexityMedium, got.Complexity)
	assert.Equal(t, 3, got.EstimatedSteps)

	assert.Contains(t, client.LastPrompt(), "make wood_pickaxe")
}

// TestRemoteOracle_AnalyzeTask_ErrorFallsBack verifies the fixed
// analysis comes back on backend failure.
func TestRemoteOracle_AnalyzeTask_ErrorFallsBack(t *testing.T) {
	client := llm.NewMockClient().WithError(errors.New("timeout"))

	o := NewRemoteOracle(client, RemoteConfig{})

	got := o.AnalyzeTask(context.Background(), "explore")
	assert.Equal(t, TaskAnalysis{
		Task:           "explore",
		Rationale:      "Basic task analysis",
		Complexity:     ComplexityMedium,
		EstimatedSteps: 3,
	}, got)
}

// TestRemoteOracle_AnalyzeTask_EmptyResponseFallsBack verifies blank
// rationales degrade too.
func TestRemoteOracle_AnalyzeTask_EmptyResponseFallsBack(t *testing.T) {
	client := llm.NewMockClient().SetDefaultResponse("  \n ")

	o := NewRemoteOracle(client, RemoteConfig{})

	got := o.AnalyzeTask(context.Background(), "survive")
	assert.Equal(t, "Basic task analysis", got.Rationale)
	assert.Equal(t, 3, got.EstimatedSteps)
}

// TestRemoteOracle_ConcurrentUse verifies one oracle instance can serve
// overlapping calls.
func TestRemoteOracle_ConcurrentUse(t *testing.T) {
	client := llm.NewMockClient().SetDefaultResponse("1. move around\n2. map area")
	o := NewRemoteOracle(client, RemoteConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				got := o.GenerateSubgoals(context.Background(), "explore", nil)
				assert.NotEmpty(t, got)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 16*25, client.CallCount())
}
