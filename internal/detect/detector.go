// Package detect runs the connection detection passes: each pass
// deletes its own prior findings, generates candidates, arbitrates
// them through the reasoning service and persists the survivors as
// pending connections.
package detect

import (
	"context"
	"fmt"

	"github.com/casekit/workbench/internal/config"
	"github.com/casekit/workbench/internal/logging"
	"github.com/casekit/workbench/internal/ollama"
	"github.com/casekit/workbench/internal/store"
)

// Pass names accepted by Run
const (
	PassInconsistency = "inconsistency"
	PassTimeline      = "timeline"
)

// AllPasses lists every detection pass in execution order
var AllPasses = []string{PassInconsistency, PassTimeline}

// Generator is the reasoning-service surface the detector needs
type Generator interface {
	Generate(ctx context.Context, req ollama.GenerateRequest) (string, error)
}

// Detector is the top-level controller for connection detection
type Detector struct {
	st  *store.Store
	gen Generator
	cfg config.Config
}

// New creates a detector over an opened store
func New(st *store.Store, gen Generator, cfg config.Config) *Detector {
	return &Detector{st: st, gen: gen, cfg: cfg}
}

// Run executes the requested passes (all of them when passes is empty)
// and returns the number of connections each pass produced. A pass
// that finds nothing to work on reports zero; only setup and storage
// failures abort.
func (d *Detector) Run(ctx context.Context, passes []string) (map[string]int, error) {
	extractionCount, err := d.st.ExtractionCount()
	if err != nil {
		return nil, err
	}
	if extractionCount == 0 {
		return nil, fmt.Errorf("no extractions found; run extraction first")
	}
	embeddingCount, err := d.st.EmbeddingCount()
	if err != nil {
		return nil, err
	}
	if embeddingCount == 0 {
		return nil, fmt.Errorf("no embeddings found; run embedding first")
	}

	if len(passes) == 0 {
		passes = AllPasses
	}

	results := make(map[string]int)
	for _, pass := range passes {
		switch pass {
		case PassInconsistency:
			n, err := d.detectInconsistencies(ctx)
			if err != nil {
				return results, fmt.Errorf("inconsistency pass: %w", err)
			}
			results[pass] = n
			logging.Info("detect", "inconsistency pass: %d connections", n)
		case PassTimeline:
			n, err := d.detectTimelineConflicts(ctx)
			if err != nil {
				return results, fmt.Errorf("timeline pass: %w", err)
			}
			results[pass] = n
			logging.Info("detect", "timeline pass: %d connections", n)
		default:
			return results, fmt.Errorf("unknown detection pass %q", pass)
		}
	}
	return results, nil
}
