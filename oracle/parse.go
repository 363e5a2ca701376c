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
	"regexp"
	"strings"
)

// enumMarkerPattern strips one leading list marker per line: a numbered
// prefix ("1.", "12.") or a bullet ("-", "*", "•").
var enumMarkerPattern = regexp.MustCompile(`^(?:\d+\.|[-*•])\s*`)

// minSubgoalLen drops fragments too short to describe an action.
const minSubgoalLen = 4

// ParseSubgoals extracts subgoal descriptions from free-form backend
// text, one per line.
//
// Blank lines are dropped, one enumeration marker is stripped from each
// line, fragments shorter than four characters are discarded, and the
// result is truncated to MaxSubgoals entries. Unusable input yields an
// empty slice, never an error.
//
// Example:
//
//	ParseSubgoals("1. Find trees\n2. Chop wood\n\n3. Return")
//	// ["Find trees", "Chop wood", "Return"]
func ParseSubgoals(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var subgoals []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		line = strings.TrimSpace(enumMarkerPattern.ReplaceAllString(line, ""))
		if len(line) < minSubgoalLen {
			continue
		}

		subgoals = append(subgoals, line)
		if len(subgoals) == MaxSubgoals {
			break
		}
	}
	return subgoals
}

// Word-count thresholds separating the complexity classes.
const (
	simpleWordLimit = 10
	mediumWordLimit = 20
)

// estimateComplexity classifies a rationale by its word count.
func estimateComplexity(rationale string) Complexity {
	words := len(strings.Fields(rationale))
	switch {
	case words < simpleWordLimit:
		return ComplexitySimple
	case words < mediumWordLimit:
		return ComplexityMedium
	default:
		return ComplexityComplex
	}
}

// actionVocabulary holds the domain verbs counted for step estimation.
var actionVocabulary = []string{"collect", "craft", "place", "defeat", "find", "move", "use"}

// estimateSteps counts how many action verbs appear in the rationale,
// clamped to [2, 6]. Each verb counts once regardless of repetition.
func estimateSteps(rationale string) int {
	lower := strings.ToLower(rationale)
	count := 0
	for _, verb := range actionVocabulary {
		if strings.Contains(lower, verb) {
			count++
		}
	}
	if count < 2 {
		return 2
	}
	if count > 6 {
		return 6
	}
	return count
}
