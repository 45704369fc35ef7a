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

// Package nlacs implements the natural-language agent coordination
// layer (C10): threads of messages drawn from a C9 conversation
// session, insight extraction, cross-thread synthesis, and consensus
// analysis. NLACS never writes session or message state; it appends
// its own records and refers back to C9 by id.
package nlacs

import "time"

// InsightType classifies an EmergentInsight.
type InsightType string

const (
	InsightPattern      InsightType = "pattern"
	InsightSynthesis    InsightType = "synthesis"
	InsightBreakthrough InsightType = "breakthrough"
	InsightConnection   InsightType = "connection"
	InsightOptimization InsightType = "optimization"
	InsightRisk         InsightType = "risk"
	InsightOpportunity  InsightType = "opportunity"
)

// ConversationThread groups a subset of a C9 session's participants
// for insight extraction and consensus analysis.
type ConversationThread struct {
	ID           string
	SessionID    string
	Participants []string
	CreatedAt    time.Time
}

func (t ConversationThread) hasParticipant(agentID string) bool {
	for _, p := range t.Participants {
		if p == agentID {
			return true
		}
	}
	return false
}

// EmergentInsight is a proposed observation over a thread's messages.
// Immutable once created; a revision is a new record whose Supersedes
// points at the prior one.
type EmergentInsight struct {
	ID               string
	ThreadID         string
	Type             InsightType
	Content          string
	Confidence       float64
	Contributors     []string
	SourceMessageIDs []string
	Relevance        float64
	CreatedAt        time.Time
	Supersedes       string
}

// SynthesizedInsight combines insights from multiple threads to answer
// a cross-cutting question.
type SynthesizedInsight struct {
	ID         string
	Question   string
	ThreadIDs  []string
	Content    string
	Confidence float64
	CreatedAt  time.Time
}

// ConsensusResult reports the three-way agreement split across a
// thread's participants for its topic.
type ConsensusResult struct {
	ThreadID     string
	Supporting   []string
	Objecting    []string
	Neutral      []string
	Compromises  []string
	QualityScore float64
}
