// Package embed generates and persists embedding vectors for
// extractions that don't have one yet.
package embed

import (
	"context"
	"fmt"

	"github.com/casekit/workbench/internal/config"
	"github.com/casekit/workbench/internal/logging"
	"github.com/casekit/workbench/internal/similarity"
	"github.com/casekit/workbench/internal/store"
)

// batchSize is a tuning constant for grouped inserts, not a
// correctness requirement.
const batchSize = 50

// Service is the embedding surface of the reasoning service
type Service interface {
	Embed(ctx context.Context, model, text string) ([]float64, error)
	Available(ctx context.Context) bool
	ModelAvailable(ctx context.Context, model string) bool
}

// Generator embeds extraction content and stores the packed vectors
type Generator struct {
	svc Service
	cfg config.Config
}

// New creates a generator using the given service and configuration
func New(svc Service, cfg config.Config) *Generator {
	return &Generator{svc: svc, cfg: cfg}
}

// EmbedExtractions embeds every extraction that lacks an embedding and
// reports how many vectors were created. Selection is by extraction id
// alone, regardless of which model produced an existing vector.
// Per-item failures are skipped; an empty run is a zero result, not an
// error.
func (g *Generator) EmbedExtractions(ctx context.Context, st *store.Store) (int, error) {
	if !g.svc.Available(ctx) {
		return 0, fmt.Errorf("ollama is not available at the configured URL")
	}
	if !g.svc.ModelAvailable(ctx, g.cfg.EmbeddingModel) {
		return 0, fmt.Errorf("embedding model %q not found; pull it with: ollama pull %s",
			g.cfg.EmbeddingModel, g.cfg.EmbeddingModel)
	}

	extractions, err := st.GetExtractions(store.ExtractionFilter{})
	if err != nil {
		return 0, fmt.Errorf("load extractions: %w", err)
	}
	if len(extractions) == 0 {
		logging.Info("embed", "no extractions to embed")
		return 0, nil
	}

	var pending []string
	contents := make(map[string]string, len(extractions))
	for _, e := range extractions {
		has, err := st.HasEmbedding(e.ID)
		if err != nil {
			return 0, fmt.Errorf("check embedding for %s: %w", e.ID, err)
		}
		if !has {
			pending = append(pending, e.ID)
			contents[e.ID] = e.Content
		}
	}
	if len(pending) == 0 {
		logging.Info("embed", "all %d extractions already embedded", len(extractions))
		return 0, nil
	}

	logging.Info("embed", "embedding %d of %d extractions", len(pending), len(extractions))

	created := 0
	var batch []store.EmbeddingRecord
	for _, id := range pending {
		vec, err := g.svc.Embed(ctx, g.cfg.EmbeddingModel, contents[id])
		if err != nil {
			logging.Debug("embed", "skip %s: %v", id, err)
			continue
		}

		batch = append(batch, store.EmbeddingRecord{
			ExtractionID: id,
			Vector:       similarity.EncodeVector(vec),
		})
		created++

		if len(batch) >= batchSize {
			if err := st.AddEmbeddings(batch, g.cfg.EmbeddingModel); err != nil {
				return created - len(batch), fmt.Errorf("store embeddings: %w", err)
			}
			batch = nil
		}
	}
	if len(batch) > 0 {
		if err := st.AddEmbeddings(batch, g.cfg.EmbeddingModel); err != nil {
			return created - len(batch), fmt.Errorf("store embeddings: %w", err)
		}
	}

	logging.Info("embed", "created %d embeddings", created)
	return created, nil
}
