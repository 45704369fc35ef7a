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

package tools

import (
	"context"

	"github.com/oneagent-dev/oneagent/pkg/nlacs"
)

// NLACSDescriptors bridges the C10 natural-language coordination layer
// onto the tool catalog: thread creation, insight extraction,
// cross-thread synthesis, and consensus analysis.
func NLACSDescriptors(svc *nlacs.Service) []Descriptor {
	return []Descriptor{
		nlacsCreateThreadDescriptor(svc),
		nlacsGenerateInsightsDescriptor(svc),
		nlacsInsightsDescriptor(svc),
		nlacsSynthesizeDescriptor(svc),
		nlacsAnalyzeConsensusDescriptor(svc),
	}
}

func nlacsCreateThreadDescriptor(svc *nlacs.Service) Descriptor {
	return Descriptor{
		Name:        "nlacs_create_thread",
		Description: "Groups a subset of a conversation session's participants into a new thread for insight extraction.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"session_id":   map[string]any{"type": "string"},
				"participants": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required":             []any{"session_id", "participants"},
			"additionalProperties": false,
		},
		Category: "nlacs",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			sessionID, err := requireStringArg(args, "session_id")
			if err != nil {
				return nil, err
			}
			id, err := svc.CreateThread(sessionID, stringSliceArg(args, "participants"))
			if err != nil {
				return nil, err
			}
			return map[string]any{"thread_id": id}, nil
		},
	}
}

func nlacsGenerateInsightsDescriptor(svc *nlacs.Service) Descriptor {
	return Descriptor{
		Name:        "nlacs_generate_insights",
		Description: "Runs insight extraction over a thread's messages and stores the resulting insights.",
		InputSchema: threadIDSchema(),
		Category:    "nlacs",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			threadID, err := requireStringArg(args, "thread_id")
			if err != nil {
				return nil, err
			}
			insights, err := svc.GenerateInsights(threadID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"insights": insights}, nil
		},
	}
}

func nlacsInsightsDescriptor(svc *nlacs.Service) Descriptor {
	return Descriptor{
		Name:        "nlacs_insights",
		Description: "Returns every insight recorded for a thread.",
		InputSchema: threadIDSchema(),
		Category:    "nlacs",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			threadID, err := requireStringArg(args, "thread_id")
			if err != nil {
				return nil, err
			}
			return map[string]any{"insights": svc.Insights(threadID)}, nil
		},
	}
}

func nlacsSynthesizeDescriptor(svc *nlacs.Service) Descriptor {
	return Descriptor{
		Name:        "nlacs_synthesize",
		Description: "Combines the strongest insights across threads into a synthesized answer to a question.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"thread_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"question":   map[string]any{"type": "string"},
			},
			"required":             []any{"thread_ids", "question"},
			"additionalProperties": false,
		},
		Category: "nlacs",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			question, err := requireStringArg(args, "question")
			if err != nil {
				return nil, err
			}
			threadIDs := stringSliceArg(args, "thread_ids")
			return svc.Synthesize(threadIDs, question)
		},
	}
}

func nlacsAnalyzeConsensusDescriptor(svc *nlacs.Service) Descriptor {
	return Descriptor{
		Name:        "nlacs_analyze_consensus",
		Description: "Computes the support/object/neutral split across a thread's participants.",
		InputSchema: threadIDSchema(),
		Category:    "nlacs",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			threadID, err := requireStringArg(args, "thread_id")
			if err != nil {
				return nil, err
			}
			return svc.AnalyzeConsensus(threadID)
		},
	}
}

func threadIDSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"thread_id": map[string]any{"type": "string"},
		},
		"required":             []any{"thread_id"},
		"additionalProperties": false,
	}
}
