package detect

import (
	"context"
	"fmt"

	"github.com/casekit/workbench/internal/logging"
	"github.com/casekit/workbench/internal/ollama"
	"github.com/casekit/workbench/internal/similarity"
	"github.com/casekit/workbench/internal/types"
)

// pairVerdict is the JSON shape the arbitration prompt asks for
type pairVerdict struct {
	Relationship   string  `json:"relationship"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	Severity       string  `json:"severity"`
	KeyDiscrepancy string  `json:"key_discrepancy"`
}

// analyzePair arbitrates one candidate pair through the reasoning
// service. Returns nil for unrelated pairs, sub-threshold confidence,
// or any service/parse failure.
func (d *Detector) analyzePair(ctx context.Context, a, b *types.Extraction) *types.SuggestedConnection {
	prompt := fmt.Sprintf(inconsistencyUser,
		a.EvidenceID, speakerOrUnknown(a), timeLabel(a), a.Content,
		b.EvidenceID, speakerOrUnknown(b), timeLabel(b), b.Content)

	response, err := d.gen.Generate(ctx, ollama.GenerateRequest{
		Model:       d.cfg.ExtractionModel,
		Prompt:      prompt,
		System:      inconsistencySystem,
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		logging.Debug("detect", "pair %s/%s: generate failed: %v", a.ID, b.ID, err)
		return nil
	}

	var verdict pairVerdict
	if err := ollama.DecodeJSON(response, &verdict); err != nil {
		logging.Debug("detect", "pair %s/%s: %v", a.ID, b.ID, err)
		return nil
	}

	if verdict.Confidence < d.cfg.InconsistencyConfidenceThreshold {
		return nil
	}

	var connType types.ConnectionType
	switch verdict.Relationship {
	case "inconsistent":
		connType = types.ConnectionInconsistent
	case "corroborating":
		connType = types.ConnectionCorroborates
	default:
		return nil
	}

	conn := types.NewConnection(a.ID, b.ID, connType, verdict.Confidence, verdict.Reasoning)
	conn.EvidenceSnippets = []string{a.Content, b.Content}
	if connType == types.ConnectionInconsistent {
		sv, err := types.ParseSeverity(verdict.Severity)
		if err != nil {
			sv = types.SeverityMinor
		}
		conn.Severity = sv
	}
	return &conn
}

// detectInconsistencies runs the semantic pass: similarity pre-filter,
// then arbitration of each surviving candidate pair. Replaces all
// prior inconsistent_statement and corroborates connections.
func (d *Detector) detectInconsistencies(ctx context.Context) (int, error) {
	records, err := d.st.AllEmbeddings()
	if err != nil {
		return 0, fmt.Errorf("load embeddings: %w", err)
	}
	if len(records) < 2 {
		logging.Info("detect", "not enough embeddings for comparison")
		return 0, nil
	}

	embeddings := make([]similarity.Embedding, 0, len(records))
	for _, rec := range records {
		vec, err := similarity.DecodeVector(rec.Vector)
		if err != nil {
			return 0, fmt.Errorf("embedding for %s: %w", rec.ExtractionID, err)
		}
		embeddings = append(embeddings, similarity.Embedding{ID: rec.ExtractionID, Vector: vec})
	}

	pairs, err := similarity.FindSimilarPairs(embeddings, d.cfg.SimilarityThreshold)
	if err != nil {
		return 0, err
	}
	logging.Info("detect", "%d candidate pairs from %d embeddings", len(pairs), len(embeddings))
	if len(pairs) == 0 {
		return 0, nil
	}

	// Full replace: every finding this pass can produce is regenerated below
	if _, err := d.st.DeleteConnectionsByType(types.ConnectionInconsistent); err != nil {
		return 0, err
	}
	if _, err := d.st.DeleteConnectionsByType(types.ConnectionCorroborates); err != nil {
		return 0, err
	}

	var connections []types.SuggestedConnection
	for _, pair := range pairs {
		a, err := d.st.GetExtraction(pair.AID)
		if err != nil {
			return 0, err
		}
		b, err := d.st.GetExtraction(pair.BID)
		if err != nil {
			return 0, err
		}
		if a == nil || b == nil {
			continue
		}

		// Similarity inside one evidence item is expected, not informative
		if a.EvidenceID == b.EvidenceID {
			continue
		}

		if conn := d.analyzePair(ctx, a, b); conn != nil {
			connections = append(connections, *conn)
		}
	}

	if err := d.st.AddConnections(connections); err != nil {
		return 0, fmt.Errorf("store connections: %w", err)
	}
	return len(connections), nil
}

func speakerOrUnknown(e *types.Extraction) string {
	if e.Speaker == "" {
		return "Unknown"
	}
	return e.Speaker
}

func timeLabel(e *types.Extraction) string {
	if e.StartTime == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1fs", *e.StartTime)
}
