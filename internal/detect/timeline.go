package detect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/casekit/workbench/internal/logging"
	"github.com/casekit/workbench/internal/ollama"
	"github.com/casekit/workbench/internal/store"
	"github.com/casekit/workbench/internal/types"
)

// timelineChunkSize bounds how many events go into one prompt, to
// stay inside the reasoning service's context window.
const timelineChunkSize = 20

// timelineConfidence is pinned for every temporal conflict. The
// inconsistency pass propagates the model's own confidence; this pass
// deliberately does not.
const timelineConfidence = 0.7

type timelineVerdict struct {
	HasConflicts bool `json:"has_conflicts"`
	Conflicts    []struct {
		EventAID    string `json:"event_a_id"`
		EventBID    string `json:"event_b_id"`
		Description string `json:"description"`
		Severity    string `json:"severity"`
	} `json:"conflicts"`
	Reasoning string `json:"reasoning"`
}

// analyzeEventChunk asks the reasoning service for implausible
// orderings among one chunk of events. A failed or unparseable
// response yields no conflicts for this chunk only.
func (d *Detector) analyzeEventChunk(ctx context.Context, events []types.Extraction) []timelineVerdict {
	if len(events) < 2 {
		return nil
	}

	var sb strings.Builder
	for _, e := range events {
		timeStr := "unknown"
		if e.StartTime != nil {
			timeStr = fmt.Sprintf("%.1f", *e.StartTime)
		}
		fmt.Fprintf(&sb, "- ID: %s\n  Time: %ss\n  Source: %s\n  Event: %s\n",
			e.ID, timeStr, e.EvidenceID, e.Content)
	}

	response, err := d.gen.Generate(ctx, ollama.GenerateRequest{
		Model:       d.cfg.ExtractionModel,
		Prompt:      fmt.Sprintf(timelineUser, sb.String()),
		System:      timelineSystem,
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		logging.Debug("detect", "timeline chunk: generate failed: %v", err)
		return nil
	}

	var verdict timelineVerdict
	if err := ollama.DecodeJSON(response, &verdict); err != nil {
		logging.Debug("detect", "timeline chunk: %v", err)
		return nil
	}
	if !verdict.HasConflicts {
		return nil
	}
	return []timelineVerdict{verdict}
}

// detectTimelineConflicts runs the temporal pass over all event-typed
// extractions. Replaces all prior temporal_conflict connections.
func (d *Detector) detectTimelineConflicts(ctx context.Context) (int, error) {
	if _, err := d.st.DeleteConnectionsByType(types.ConnectionTemporalConflict); err != nil {
		return 0, err
	}

	events, err := d.st.GetExtractions(store.ExtractionFilter{Type: types.ExtractionEvent})
	if err != nil {
		return 0, fmt.Errorf("load events: %w", err)
	}
	if len(events) < 2 {
		logging.Info("detect", "not enough events for timeline analysis")
		return 0, nil
	}

	// Ascending by start time, events without one last
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].StartTime, events[j].StartTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})

	sources := make(map[string]bool)
	for _, e := range events {
		sources[e.EvidenceID] = true
	}
	if len(sources) < 2 {
		logging.Info("detect", "all events come from one source; nothing to cross-check")
		return 0, nil
	}

	byID := make(map[string]*types.Extraction, len(events))
	for i := range events {
		byID[events[i].ID] = &events[i]
	}

	var connections []types.SuggestedConnection
	for start := 0; start < len(events); start += timelineChunkSize {
		end := start + timelineChunkSize
		if end > len(events) {
			end = len(events)
		}

		for _, verdict := range d.analyzeEventChunk(ctx, events[start:end]) {
			for _, conflict := range verdict.Conflicts {
				a := byID[conflict.EventAID]
				b := byID[conflict.EventBID]
				if a == nil || b == nil {
					continue
				}
				if a.EvidenceID == b.EvidenceID {
					continue
				}

				reasoning := conflict.Description
				if reasoning == "" {
					reasoning = "Timeline conflict detected"
				}
				conn := types.NewConnection(a.ID, b.ID, types.ConnectionTemporalConflict,
					timelineConfidence, reasoning)
				conn.EvidenceSnippets = []string{a.Content, b.Content}
				sv, err := types.ParseSeverity(conflict.Severity)
				if err != nil {
					sv = types.SeverityModerate
				}
				conn.Severity = sv
				connections = append(connections, conn)
			}
		}
	}

	if err := d.st.AddConnections(connections); err != nil {
		return 0, fmt.Errorf("store connections: %w", err)
	}
	return len(connections), nil
}
