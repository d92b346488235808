// Package extract turns transcript segments into atomic typed fact
// records via the reasoning service.
package extract

import (
	"context"
	"fmt"

	"github.com/casekit/workbench/internal/config"
	"github.com/casekit/workbench/internal/logging"
	"github.com/casekit/workbench/internal/ollama"
	"github.com/casekit/workbench/internal/store"
	"github.com/casekit/workbench/internal/types"
)

// Generator is the reasoning-service surface the extractor needs
type Generator interface {
	Generate(ctx context.Context, req ollama.GenerateRequest) (string, error)
	Available(ctx context.Context) bool
}

// Extractor converts transcript segments into Extractions
type Extractor struct {
	gen Generator
	cfg config.Config
}

// New creates an extractor using the given generator and configuration
func New(gen Generator, cfg config.Config) *Extractor {
	return &Extractor{gen: gen, cfg: cfg}
}

// segmentResponse is the JSON shape the extraction prompt asks for
type segmentResponse struct {
	Statements []struct {
		Content    string  `json:"content"`
		Speaker    string  `json:"speaker"`
		Confidence float64 `json:"confidence"`
	} `json:"statements"`
	Events []struct {
		Content    string  `json:"content"`
		Confidence float64 `json:"confidence"`
	} `json:"events"`
	EntityMentions []struct {
		Content    string  `json:"content"`
		EntityType string  `json:"entity_type"`
		Confidence float64 `json:"confidence"`
	} `json:"entity_mentions"`
	Actions []struct {
		Content    string  `json:"content"`
		Actor      string  `json:"actor"`
		Confidence float64 `json:"confidence"`
	} `json:"actions"`
}

// FromSegment extracts facts from one transcript segment. A model
// failure or unparseable response yields an empty list, not an error;
// one bad segment never aborts a transcript.
func (x *Extractor) FromSegment(ctx context.Context, evidenceID string, segmentIndex int, seg types.Segment) []types.Extraction {
	speaker := seg.Speaker
	if speaker == "" {
		speaker = "UNKNOWN"
	}
	role := seg.SpeakerRole
	if role == "" {
		role = "Unknown"
	}

	translationSection := ""
	if seg.Translation != "" {
		translationSection = fmt.Sprintf("Translation (English):\n%s\n", seg.Translation)
	}

	prompt := fmt.Sprintf(extractionUser,
		speaker, role, seg.StartTime, seg.EndTime, seg.Text,
		translationSection, speaker, speaker)

	response, err := x.gen.Generate(ctx, ollama.GenerateRequest{
		Model:       x.cfg.ExtractionModel,
		Prompt:      prompt,
		System:      extractionSystem,
		Temperature: x.cfg.ExtractionTemperature,
		MaxTokens:   x.cfg.ExtractionMaxTokens,
	})
	if err != nil {
		logging.Debug("extract", "segment %d of %s: generate failed: %v", segmentIndex, evidenceID, err)
		return nil
	}

	var parsed segmentResponse
	if err := ollama.DecodeJSON(response, &parsed); err != nil {
		logging.Debug("extract", "segment %d of %s: %v (%s)",
			segmentIndex, evidenceID, err, logging.Snippet(response, 120))
		return nil
	}

	newExtraction := func(t types.ExtractionType, content, speaker string, confidence float64) types.Extraction {
		e := types.NewExtraction(evidenceID, t, content)
		idx := segmentIndex
		e.SegmentIndex = &idx
		e.Speaker = speaker
		e.SpeakerRole = seg.SpeakerRole
		start, end := seg.StartTime, seg.EndTime
		e.StartTime = &start
		e.EndTime = &end
		if confidence <= 0 {
			confidence = 0.8
		}
		e.Confidence = confidence
		return e
	}

	var out []types.Extraction
	for _, item := range parsed.Statements {
		who := item.Speaker
		if who == "" {
			who = speaker
		}
		out = append(out, newExtraction(types.ExtractionStatement, item.Content, who, item.Confidence))
	}
	for _, item := range parsed.Events {
		out = append(out, newExtraction(types.ExtractionEvent, item.Content, speaker, item.Confidence))
	}
	for _, item := range parsed.EntityMentions {
		content := item.Content
		if item.EntityType != "" {
			content = fmt.Sprintf("[%s] %s", item.EntityType, content)
		}
		out = append(out, newExtraction(types.ExtractionEntityMention, content, speaker, item.Confidence))
	}
	for _, item := range parsed.Actions {
		actor := item.Actor
		if actor == "" {
			actor = speaker
		}
		out = append(out, newExtraction(types.ExtractionAction, item.Content, actor, item.Confidence))
	}
	return out
}

// FromTranscript extracts facts from every segment in order. Calls are
// strictly sequential; the reasoning service is the bottleneck either
// way and serial requests keep local inference from thrashing.
func (x *Extractor) FromTranscript(ctx context.Context, evidenceID string, segments []types.Segment) []types.Extraction {
	var all []types.Extraction
	for idx, seg := range segments {
		all = append(all, x.FromSegment(ctx, evidenceID, idx, seg)...)
	}
	return all
}

// FromCase extracts facts for every evidence item carrying a
// transcript, replacing any prior extractions per item so repeated
// runs refresh rather than accumulate. Fails fast if the reasoning
// service is unreachable; no partial work is attempted.
func (x *Extractor) FromCase(ctx context.Context, st *store.Store, c *types.Case) (int, error) {
	if !x.gen.Available(ctx) {
		return 0, fmt.Errorf("ollama is not available at the configured URL")
	}

	total := 0
	for i := range c.EvidenceItems {
		item := &c.EvidenceItems[i]
		if !item.HasTranscript() {
			continue
		}

		deleted, err := st.DeleteExtractionsForEvidence(item.ID)
		if err != nil {
			return total, fmt.Errorf("clear extractions for %s: %w", item.ID, err)
		}
		if deleted > 0 {
			logging.Debug("extract", "replaced %d prior extractions for %s", deleted, item.Filename)
		}

		extractions := x.FromTranscript(ctx, item.ID, item.Transcript.Segments)
		if len(extractions) > 0 {
			if err := st.AddExtractions(extractions); err != nil {
				return total, fmt.Errorf("store extractions for %s: %w", item.ID, err)
			}
			total += len(extractions)
		}
		logging.Info("extract", "%s: %d facts", item.Filename, len(extractions))
	}
	return total, nil
}
