package extract

import (
	"fmt"
	"strings"

	"github.com/tsawler/prose/v3"

	"github.com/casekit/workbench/internal/types"
)

// FastExtractor produces entity_mention extractions with local NER,
// no reasoning service involved. It complements the LLM pass: cheap,
// deterministic, and limited to named entities.
type FastExtractor struct{}

// NewFastExtractor creates a prose-backed entity extractor
func NewFastExtractor() *FastExtractor {
	return &FastExtractor{}
}

// entityTag maps a prose NER label to the tag prefixed onto the
// extraction content, matching the LLM pass's person|place|time|object
// vocabulary.
func entityTag(label string) string {
	switch strings.ToUpper(label) {
	case "PERSON":
		return "person"
	case "GPE", "LOC", "FAC":
		return "place"
	case "DATE", "TIME":
		return "time"
	default:
		return "object"
	}
}

// FromSegment extracts named entities from one segment. Confidence
// comes from the NER model.
func (f *FastExtractor) FromSegment(evidenceID string, segmentIndex int, seg types.Segment) []types.Extraction {
	text := seg.Text
	if seg.Translation != "" {
		text = seg.Translation
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil
	}

	var out []types.Extraction
	for _, ent := range doc.Entities() {
		content := fmt.Sprintf("[%s] %s", entityTag(ent.Label), ent.Text)
		e := types.NewExtraction(evidenceID, types.ExtractionEntityMention, content)
		idx := segmentIndex
		e.SegmentIndex = &idx
		e.Speaker = seg.Speaker
		e.SpeakerRole = seg.SpeakerRole
		start, end := seg.StartTime, seg.EndTime
		e.StartTime = &start
		e.EndTime = &end
		if ent.Confidence > 0 {
			e.Confidence = ent.Confidence
		}
		out = append(out, e)
	}
	return out
}

// FromTranscript runs the fast pass over every segment in order
func (f *FastExtractor) FromTranscript(evidenceID string, segments []types.Segment) []types.Extraction {
	var all []types.Extraction
	for idx, seg := range segments {
		all = append(all, f.FromSegment(evidenceID, idx, seg)...)
	}
	return all
}
