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
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianPlan/journal"
	"github.com/AleutianAI/AleutianPlan/pkg/validation"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	historySession       string // Session to replay; empty lists sessions
	historySkipCorrupted bool   // Continue past CRC failures and gaps
	historyJSONOutput    bool   // Output as JSON
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// historyCmd replays the plan journal.
//
// # Description
//
// Without --session, lists every session recorded in the configured
// journal database. With --session, replays that session's records in
// append order: issued plans with their goals and triggers, and the
// rewards observed for executed actions.
//
// # Examples
//
//	aleutianplan history                      # list sessions
//	aleutianplan history --session demo       # replay one session
//	aleutianplan history --session demo --skip-corrupted
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Replay the plan journal",
	Run:   runHistoryCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	historyCmd.Flags().StringVar(&historySession, "session", "",
		"Session ID to replay (omit to list sessions)")
	historyCmd.Flags().BoolVar(&historySkipCorrupted, "skip-corrupted", false,
		"Continue replay past corrupted entries and sequence gaps")
	historyCmd.Flags().BoolVar(&historyJSONOutput, "json", false,
		"Output as JSON for scripting")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runHistoryCommand(cmd *cobra.Command, args []string) {
	if cfg.Journal.Path == "" {
		fatalf("No journal path configured (set journal.path or PLANNER_JOURNAL_PATH)")
	}

	if historySession == "" {
		listSessions(cmd)
		return
	}

	session, err := validation.SanitizeSessionID(historySession)
	if err != nil {
		fatalf("Invalid --session value: %v", err)
	}

	jcfg := journal.DefaultConfig()
	jcfg.Path = cfg.Journal.Path
	jcfg.SessionID = session
	jcfg.SkipCorrupted = historySkipCorrupted
	jcfg.Logger = appLogger.Slog()

	jnl, err := journal.NewBadgerJournal(jcfg)
	if err != nil {
		fatalf("Failed to open journal: %v", err)
	}
	defer jnl.Close()

	records, err := jnl.Replay(cmd.Context())
	if err != nil {
		fatalf("Failed to replay journal: %v", err)
	}

	if historyJSONOutput {
		printJSON(historyEntries(records))
		return
	}
	if len(records) == 0 {
		fmt.Println("No records for this session.")
		return
	}
	for _, line := range formatRecords(records) {
		fmt.Println(line)
	}
}

func listSessions(cmd *cobra.Command) {
	sessions, err := journal.ListSessions(cmd.Context(), cfg.Journal.Path)
	if err != nil {
		fatalf("Failed to list sessions: %v", err)
	}

	if historyJSONOutput {
		printJSON(sessions)
		return
	}
	if len(sessions) == 0 {
		fmt.Println("No journal sessions found.")
		return
	}
	fmt.Println("Journal sessions (replay one with --session):")
	for _, s := range sessions {
		fmt.Println("  " + s)
	}
}

// =============================================================================
// OUTPUT FORMATTING
// =============================================================================

// historyEntry is the JSON shape of one journal record, flattened across
// the two record kinds.
type historyEntry struct {
	Kind      string    `json:"kind"`
	At        time.Time `json:"at"`
	PlanID    string    `json:"plan_id,omitempty"`
	Goal      string    `json:"goal,omitempty"`
	Plan      []string  `json:"plan,omitempty"`
	Trigger   string    `json:"trigger,omitempty"`
	Action    string    `json:"action,omitempty"`
	Reward    *float64  `json:"reward,omitempty"`
	Replanned *bool     `json:"replanned,omitempty"`
}

// historyEntries converts journal records for JSON output.
func historyEntries(records []journal.Record) []historyEntry {
	entries := make([]historyEntry, 0, len(records))
	for _, rec := range records {
		entry := historyEntry{Kind: rec.Kind().String(), At: rec.At()}
		switch r := rec.(type) {
		case *journal.PlanRecord:
			entry.PlanID = r.PlanID
			entry.Goal = r.Goal
			entry.Plan = r.Plan
			entry.Trigger = string(r.Trigger)
		case *journal.RewardRecord:
			entry.PlanID = r.PlanID
			entry.Action = r.Action
			entry.Reward = &r.Reward
			entry.Replanned = &r.Replanned
		}
		entries = append(entries, entry)
	}
	return entries
}

// formatRecords renders journal records one line each, in replay order.
func formatRecords(records []journal.Record) []string {
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		ts := rec.At().Format(time.RFC3339)
		switch r := rec.(type) {
		case *journal.PlanRecord:
			lines = append(lines, fmt.Sprintf("[%s] PLAN   %s trigger=%s goal=%q steps=%d: %s",
				ts, shortID(r.PlanID), r.Trigger, r.Goal, len(r.Plan), strings.Join(r.Plan, ", ")))
		case *journal.RewardRecord:
			lines = append(lines, fmt.Sprintf("[%s] REWARD %s action=%q reward=%.2f replanned=%t",
				ts, shortID(r.PlanID), r.Action, r.Reward, r.Replanned))
		default:
			lines = append(lines, fmt.Sprintf("[%s] %s", ts, rec.Kind()))
		}
	}
	return lines
}

// shortID truncates a plan UUID to its first segment for display.
func shortID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	if id == "" {
		return "--------"
	}
	return id
}
