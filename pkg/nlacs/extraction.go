// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nlacs

import (
	"strconv"
	"strings"

	"github.com/oneagent-dev/oneagent/pkg/communication"
)

// ExtractionStrategy proposes insights from a thread's message set.
// Implementations may call out to an LLM; HeuristicStrategy is the
// deterministic fallback that must always be available.
type ExtractionStrategy interface {
	Extract(thread ConversationThread, messages []communication.Message) ([]ProposedInsight, error)
}

// ProposedInsight is what a strategy returns before ids and timestamps
// are assigned by the service.
type ProposedInsight struct {
	Type             InsightType
	Content          string
	Confidence       float64
	Contributors     []string
	SourceMessageIDs []string
	Relevance        float64
}

// contradictionMarkers and agreementMarkers drive the deterministic
// heuristic: simple keyword co-occurrence and contradiction detection
// between message pairs, generalized from this lineage's fixed-role
// debate consensus check (agreement inferred from confidence language)
// to arbitrary thread participants.
var (
	contradictionMarkers = []string{"disagree", "however", "but", "instead", "incorrect", "wrong", "actually no"}
	agreementMarkers     = []string{"agree", "exactly", "confirmed", "yes,", "+1", "same conclusion"}
	riskMarkers          = []string{"risk", "concern", "vulnerab", "unsafe", "breaks", "regression"}
	optimizationMarkers  = []string{"faster", "optimi", "efficient", "reduce latency", "throughput"}
)

// HeuristicStrategy extracts insights by keyword co-occurrence and
// pairwise contradiction/agreement detection. No external dependency;
// always available as the fallback strategy.
type HeuristicStrategy struct{}

// Extract implements ExtractionStrategy.
func (HeuristicStrategy) Extract(thread ConversationThread, messages []communication.Message) ([]ProposedInsight, error) {
	var out []ProposedInsight

	contradictions := findContradictions(messages)
	out = append(out, contradictions...)

	if risk := scanForMarkers(messages, riskMarkers, InsightRisk); risk != nil {
		out = append(out, *risk)
	}
	if opt := scanForMarkers(messages, optimizationMarkers, InsightOptimization); opt != nil {
		out = append(out, *opt)
	}
	if agree := findAgreementCluster(messages); agree != nil {
		out = append(out, *agree)
	}

	return out, nil
}

func findContradictions(messages []communication.Message) []ProposedInsight {
	var out []ProposedInsight
	for i := 1; i < len(messages); i++ {
		prev, cur := messages[i-1], messages[i]
		if prev.FromAgent == cur.FromAgent {
			continue
		}
		if !containsAny(cur.Content, contradictionMarkers) {
			continue
		}
		out = append(out, ProposedInsight{
			Type:             InsightConnection,
			Content:          "contradiction detected between " + prev.FromAgent + " and " + cur.FromAgent,
			Confidence:       0.55,
			Contributors:     dedupe([]string{prev.FromAgent, cur.FromAgent}),
			SourceMessageIDs: []string{prev.ID, cur.ID},
			Relevance:        0.5,
		})
	}
	return out
}

func scanForMarkers(messages []communication.Message, markers []string, t InsightType) *ProposedInsight {
	var contributors, sources []string
	for _, m := range messages {
		if containsAny(m.Content, markers) {
			contributors = append(contributors, m.FromAgent)
			sources = append(sources, m.ID)
		}
	}
	if len(sources) == 0 {
		return nil
	}
	confidence := 0.4 + 0.1*float64(len(sources))
	if confidence > 0.9 {
		confidence = 0.9
	}
	return &ProposedInsight{
		Type:             t,
		Content:          string(t) + " markers found across " + strconv.Itoa(len(sources)) + " message(s)",
		Confidence:       confidence,
		Contributors:     dedupe(contributors),
		SourceMessageIDs: sources,
		Relevance:        0.6,
	}
}

func findAgreementCluster(messages []communication.Message) *ProposedInsight {
	var contributors, sources []string
	for _, m := range messages {
		if containsAny(m.Content, agreementMarkers) {
			contributors = append(contributors, m.FromAgent)
			sources = append(sources, m.ID)
		}
	}
	contributors = dedupe(contributors)
	if len(contributors) < 2 {
		return nil
	}
	return &ProposedInsight{
		Type:             InsightPattern,
		Content:          "convergent agreement across " + strconv.Itoa(len(contributors)) + " participants",
		Confidence:       0.7,
		Contributors:     contributors,
		SourceMessageIDs: sources,
		Relevance:        0.65,
	}
}

func containsAny(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

