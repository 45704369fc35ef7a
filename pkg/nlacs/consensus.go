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
	"strings"

	"github.com/oneagent-dev/oneagent/pkg/communication"
)

// stance classifies one message's position relative to the thread's
// topic, generalized from this lineage's swarm voting tally (support /
// object / neutral) from a fixed choice enum to free-text sentiment.
type stance string

const (
	stanceSupport stance = "support"
	stanceObject  stance = "object"
	stanceNeutral stance = "neutral"
)

func classifyStance(content string) stance {
	lower := strings.ToLower(content)
	if containsAny(lower, contradictionMarkers) {
		return stanceObject
	}
	if containsAny(lower, agreementMarkers) {
		return stanceSupport
	}
	return stanceNeutral
}

// analyzeConsensus tallies each participant's latest message into
// support/object/neutral and scores quality as the supporting share,
// mirroring this lineage's vote-distribution aggregation generalized
// from a fixed voting scheme to this three-way tally.
func analyzeConsensus(thread ConversationThread, messages []communication.Message) ConsensusResult {
	latest := make(map[string]communication.Message)
	for _, m := range messages {
		latest[m.FromAgent] = m
	}

	result := ConsensusResult{ThreadID: thread.ID}
	for _, agentID := range thread.Participants {
		m, ok := latest[agentID]
		if !ok {
			continue
		}
		switch classifyStance(m.Content) {
		case stanceSupport:
			result.Supporting = append(result.Supporting, agentID)
		case stanceObject:
			result.Objecting = append(result.Objecting, agentID)
		default:
			result.Neutral = append(result.Neutral, agentID)
		}
	}

	total := len(result.Supporting) + len(result.Objecting) + len(result.Neutral)
	if total > 0 {
		result.QualityScore = float64(len(result.Supporting)) / float64(total)
	}
	if len(result.Supporting) > 0 && len(result.Objecting) > 0 {
		result.Compromises = append(result.Compromises, "mixed stance: revisit with a moderator synthesis")
	}
	return result
}
