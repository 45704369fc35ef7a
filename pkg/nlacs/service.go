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
	"sort"
	"strings"
	"sync"

	"github.com/oneagent-dev/oneagent/pkg/backbone"
	"github.com/oneagent-dev/oneagent/pkg/communication"
	"github.com/oneagent-dev/oneagent/pkg/oneerr"
	"go.uber.org/zap"
)

const (
	threadKeyPrefix   = "nlacs:thread:"
	insightKeyPrefix  = "nlacs:insight:"
	threadInsightsFmt = "nlacs:thread-insights:"
)

// BreakthroughThresholds configures when an insight is flagged as a
// breakthrough and published as nlacs_event.
type BreakthroughThresholds struct {
	MinConfidence float64
	MinRelevance  float64
}

// Config configures a Service.
type Config struct {
	Strategy     ExtractionStrategy
	Breakthrough BreakthroughThresholds
}

// Service implements the NLACS layer (C10), layered read-only atop a
// communication.Service: it reads session/message state but only ever
// writes its own thread and insight records.
type Service struct {
	bb     *backbone.Backbone
	comm   *communication.Service
	logger *zap.Logger
	cfg    Config

	mu sync.Mutex
}

// New constructs a Service over the given communication service.
func New(bb *backbone.Backbone, comm *communication.Service, logger *zap.Logger, cfg Config) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Strategy == nil {
		cfg.Strategy = HeuristicStrategy{}
	}
	if cfg.Breakthrough.MinConfidence <= 0 {
		cfg.Breakthrough.MinConfidence = 0.75
	}
	if cfg.Breakthrough.MinRelevance <= 0 {
		cfg.Breakthrough.MinRelevance = 0.6
	}
	return &Service{bb: bb, comm: comm, logger: logger, cfg: cfg}
}

// CreateThread groups a subset of a C9 session's participants into a
// new ConversationThread.
func (s *Service) CreateThread(sessionID string, participants []string) (string, error) {
	info, err := s.comm.GetSessionInfo(sessionID)
	if err != nil {
		return "", err
	}
	sessionParticipants := make(map[string]struct{}, len(info.Participants))
	for _, p := range info.Participants {
		sessionParticipants[p] = struct{}{}
	}
	for _, p := range participants {
		if _, ok := sessionParticipants[p]; !ok {
			return "", oneerr.New(oneerr.InvalidParams, "agent %s is not a participant of session %s", p, sessionID)
		}
	}

	thread := ConversationThread{
		ID:           s.bb.NewID("thread"),
		SessionID:    sessionID,
		Participants: append([]string(nil), participants...),
		CreatedAt:    s.bb.Now(),
	}
	s.bb.Cache().Set(threadKeyPrefix+thread.ID, thread, 0)
	return thread.ID, nil
}

// GetThread returns the thread by id.
func (s *Service) GetThread(threadID string) (ConversationThread, error) {
	raw, ok := s.bb.Cache().Get(threadKeyPrefix + threadID)
	if !ok {
		return ConversationThread{}, oneerr.New(oneerr.NotFound, "thread %s not found", threadID)
	}
	return raw.(ConversationThread), nil
}

func (s *Service) threadMessages(thread ConversationThread) ([]communication.Message, error) {
	all, err := s.comm.GetHistory(thread.SessionID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]communication.Message, 0, len(all))
	for _, m := range all {
		if thread.hasParticipant(m.FromAgent) {
			out = append(out, m)
		}
	}
	return out, nil
}

// GenerateInsights runs the configured extraction strategy over the
// thread's message set and stores the resulting EmergentInsight
// records. Contributors are clipped to the thread's participant set
// and confidence is validated against [0,1].
func (s *Service) GenerateInsights(threadID string) ([]EmergentInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, err := s.GetThread(threadID)
	if err != nil {
		return nil, err
	}
	messages, err := s.threadMessages(thread)
	if err != nil {
		return nil, err
	}
	proposed, err := s.cfg.Strategy.Extract(thread, messages)
	if err != nil {
		return nil, err
	}

	cache := s.bb.Cache()
	out := make([]EmergentInsight, 0, len(proposed))
	for _, p := range proposed {
		if p.Confidence < 0 || p.Confidence > 1 {
			return nil, oneerr.New(oneerr.InvalidConfidence, "insight confidence %f out of bounds", p.Confidence)
		}
		contributors := make([]string, 0, len(p.Contributors))
		for _, c := range p.Contributors {
			if thread.hasParticipant(c) {
				contributors = append(contributors, c)
			}
		}
		insight := EmergentInsight{
			ID:               s.bb.NewID("insight"),
			ThreadID:         threadID,
			Type:             p.Type,
			Content:          p.Content,
			Confidence:       p.Confidence,
			Contributors:     contributors,
			SourceMessageIDs: p.SourceMessageIDs,
			Relevance:        p.Relevance,
			CreatedAt:        s.bb.Now(),
		}
		cache.Set(insightKeyPrefix+insight.ID, insight, 0)
		s.addThreadInsight(threadID, insight.ID)
		out = append(out, insight)

		if insight.Confidence >= s.cfg.Breakthrough.MinConfidence && insight.Relevance >= s.cfg.Breakthrough.MinRelevance {
			s.comm.Publish(communication.EventNLACS, thread.SessionID, "", insight)
		}
	}
	return out, nil
}

func (s *Service) addThreadInsight(threadID, insightID string) {
	key := threadInsightsFmt + threadID
	raw := s.bb.Cache().GetOrCreate(key, 0, func() any { return []string{} })
	ids := raw.([]string)
	ids = append(ids, insightID)
	s.bb.Cache().Set(key, ids, 0)
}

func (s *Service) threadInsights(threadID string) []EmergentInsight {
	raw, ok := s.bb.Cache().Get(threadInsightsFmt + threadID)
	if !ok {
		return nil
	}
	ids := raw.([]string)
	out := make([]EmergentInsight, 0, len(ids))
	for _, id := range ids {
		if raw, ok := s.bb.Cache().Get(insightKeyPrefix + id); ok {
			out = append(out, raw.(EmergentInsight))
		}
	}
	return out
}

// Synthesize combines the strongest insights across threadIDs into a
// SynthesizedInsight answering question. Deterministic: ranks by
// confidence*relevance and concatenates the top contributions.
func (s *Service) Synthesize(threadIDs []string, question string) (SynthesizedInsight, error) {
	var pool []EmergentInsight
	for _, id := range threadIDs {
		if _, err := s.GetThread(id); err != nil {
			return SynthesizedInsight{}, err
		}
		pool = append(pool, s.threadInsights(id)...)
	}
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].Confidence*pool[i].Relevance > pool[j].Confidence*pool[j].Relevance
	})

	top := pool
	if len(top) > 5 {
		top = top[:5]
	}
	var sb strings.Builder
	var confidenceSum float64
	for _, ins := range top {
		sb.WriteString(string(ins.Type) + ": " + ins.Content + "\n")
		confidenceSum += ins.Confidence
	}
	confidence := 0.0
	if len(top) > 0 {
		confidence = confidenceSum / float64(len(top))
	}

	return SynthesizedInsight{
		ID:         s.bb.NewID("synth"),
		Question:   question,
		ThreadIDs:  append([]string(nil), threadIDs...),
		Content:    sb.String(),
		Confidence: confidence,
		CreatedAt:  s.bb.Now(),
	}, nil
}

// AnalyzeConsensus computes the support/object/neutral split across a
// thread's participants.
func (s *Service) AnalyzeConsensus(threadID string) (ConsensusResult, error) {
	thread, err := s.GetThread(threadID)
	if err != nil {
		return ConsensusResult{}, err
	}
	messages, err := s.threadMessages(thread)
	if err != nil {
		return ConsensusResult{}, err
	}
	return analyzeConsensus(thread, messages), nil
}

// Insights returns every insight recorded for a thread.
func (s *Service) Insights(threadID string) []EmergentInsight {
	return s.threadInsights(threadID)
}
