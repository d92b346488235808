package types

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Segment is one ordered span of a transcript
type Segment struct {
	Text        string  `json:"text"`
	Speaker     string  `json:"speaker"`
	SpeakerRole string  `json:"speaker_role,omitempty"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Translation string  `json:"translation,omitempty"`
}

// Transcript carries the ordered segments of one evidence item
type Transcript struct {
	Segments []Segment `json:"segments"`
}

// EvidenceItem is one file within a case, optionally transcribed
type EvidenceItem struct {
	ID         string      `json:"id"`
	Filename   string      `json:"filename"`
	Transcript *Transcript `json:"transcript,omitempty"`
}

// HasTranscript reports whether the item carries a non-empty transcript
func (e *EvidenceItem) HasTranscript() bool {
	return e.Transcript != nil && len(e.Transcript.Segments) > 0
}

// Case is the ingestion collaborator contract: an ordered list of
// evidence items. Container unpacking and classification happen
// upstream; the engine only consumes this value.
type Case struct {
	CaseID        string         `json:"case_id"`
	EvidenceItems []EvidenceItem `json:"evidence_items"`
}

// LoadCase reads case.json from a case directory
func LoadCase(caseDir string) (*Case, error) {
	path := filepath.Join(caseDir, "case.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case file: %w", err)
	}
	var c Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse case file %s: %w", path, err)
	}
	return &c, nil
}
