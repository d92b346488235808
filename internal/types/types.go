package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExtractionType defines the kind of fact pulled from a transcript segment
type ExtractionType string

const (
	ExtractionStatement     ExtractionType = "statement"
	ExtractionEvent         ExtractionType = "event"
	ExtractionEntityMention ExtractionType = "entity_mention"
	ExtractionAction        ExtractionType = "action"
	ExtractionDialogue      ExtractionType = "dialogue"
)

// ParseExtractionType validates a stored extraction type value
func ParseExtractionType(s string) (ExtractionType, error) {
	switch t := ExtractionType(s); t {
	case ExtractionStatement, ExtractionEvent, ExtractionEntityMention,
		ExtractionAction, ExtractionDialogue:
		return t, nil
	}
	return "", fmt.Errorf("unknown extraction type %q", s)
}

// ConnectionType defines the kind of relationship between two extractions
type ConnectionType string

const (
	ConnectionInconsistent     ConnectionType = "inconsistent_statement"
	ConnectionTemporalConflict ConnectionType = "temporal_conflict"
	ConnectionCorroborates     ConnectionType = "corroborates"
	ConnectionContradicts      ConnectionType = "contradicts"
)

// ConnectionTypes lists every connection type, for stats partitioning
var ConnectionTypes = []ConnectionType{
	ConnectionInconsistent,
	ConnectionTemporalConflict,
	ConnectionCorroborates,
	ConnectionContradicts,
}

// ParseConnectionType validates a stored connection type value
func ParseConnectionType(s string) (ConnectionType, error) {
	switch t := ConnectionType(s); t {
	case ConnectionInconsistent, ConnectionTemporalConflict,
		ConnectionCorroborates, ConnectionContradicts:
		return t, nil
	}
	return "", fmt.Errorf("unknown connection type %q", s)
}

// Severity ranks how much a finding matters to a reviewer
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// ParseSeverity validates a stored severity value
func ParseSeverity(s string) (Severity, error) {
	switch sv := Severity(s); sv {
	case SeverityMinor, SeverityModerate, SeverityMajor, SeverityCritical:
		return sv, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// ConnectionStatus tracks human review of a suggested connection
type ConnectionStatus string

const (
	StatusPending   ConnectionStatus = "pending"
	StatusConfirmed ConnectionStatus = "confirmed"
	StatusRejected  ConnectionStatus = "rejected"
)

// ConnectionStatuses lists every review status, for stats partitioning
var ConnectionStatuses = []ConnectionStatus{StatusPending, StatusConfirmed, StatusRejected}

// ParseConnectionStatus validates a stored status value
func ParseConnectionStatus(s string) (ConnectionStatus, error) {
	switch st := ConnectionStatus(s); st {
	case StatusPending, StatusConfirmed, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown connection status %q", s)
}

// Extraction is one atomic fact derived from a transcript segment.
// Extractions are immutable once created; re-processing an evidence
// item deletes and recreates them wholesale.
type Extraction struct {
	ID           string
	EvidenceID   string
	Type         ExtractionType
	Content      string
	SegmentIndex *int
	Speaker      string
	SpeakerRole  string
	StartTime    *float64
	EndTime      *float64
	Confidence   float64
	CreatedAt    time.Time
}

// NewExtraction creates an extraction with a generated ID
func NewExtraction(evidenceID string, t ExtractionType, content string) Extraction {
	return Extraction{
		ID:         uuid.NewString(),
		EvidenceID: evidenceID,
		Type:       t,
		Content:    content,
		Confidence: 1.0,
		CreatedAt:  time.Now(),
	}
}

// SuggestedConnection is a detected relationship between two extractions
// from different evidence items. Status is the only field a reviewer may
// change after creation.
type SuggestedConnection struct {
	ID               string
	ExtractionAID    string
	ExtractionBID    string
	Type             ConnectionType
	Confidence       float64
	Reasoning        string
	EvidenceSnippets []string
	Severity         Severity // empty unless the type carries one
	Status           ConnectionStatus
	CreatedAt        time.Time
}

// NewConnection creates a pending connection with a generated ID
func NewConnection(aID, bID string, t ConnectionType, confidence float64, reasoning string) SuggestedConnection {
	return SuggestedConnection{
		ID:            uuid.NewString(),
		ExtractionAID: aID,
		ExtractionBID: bID,
		Type:          t,
		Confidence:    confidence,
		Reasoning:     reasoning,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
	}
}
