package embed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/casekit/workbench/internal/config"
	"github.com/casekit/workbench/internal/store"
	"github.com/casekit/workbench/internal/types"
)

// stubService answers embedding calls from a fixed table
type stubService struct {
	vectors      map[string][]float64
	available    bool
	modelPresent bool
	calls        int
}

func (s *stubService) Embed(ctx context.Context, model, text string) ([]float64, error) {
	s.calls++
	vec, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return vec, nil
}

func (s *stubService) Available(ctx context.Context) bool { return s.available }

func (s *stubService) ModelAvailable(ctx context.Context, model string) bool {
	return s.modelPresent
}

func setupEmbedStore(t *testing.T) (*store.Store, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "workbench-embed-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	s, err := store.Open(filepath.Join(tmpDir, "workbench.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to open store: %v", err)
	}
	return s, func() {
		s.Close()
		os.RemoveAll(tmpDir)
	}
}

func addExtraction(t *testing.T, st *store.Store, content string) types.Extraction {
	t.Helper()
	e := types.NewExtraction("ev-1", types.ExtractionStatement, content)
	if err := st.AddExtraction(e); err != nil {
		t.Fatalf("AddExtraction failed: %v", err)
	}
	return e
}

func TestEmbedExtractions(t *testing.T) {
	st, cleanup := setupEmbedStore(t)
	defer cleanup()

	a := addExtraction(t, st, "fact a")
	b := addExtraction(t, st, "fact b")

	svc := &stubService{
		vectors: map[string][]float64{
			"fact a": {1, 0, 0},
			"fact b": {0, 1, 0},
		},
		available:    true,
		modelPresent: true,
	}
	g := New(svc, config.Default())

	created, err := g.EmbedExtractions(context.Background(), st)
	if err != nil {
		t.Fatalf("EmbedExtractions failed: %v", err)
	}
	if created != 2 {
		t.Errorf("Expected 2 embeddings created, got %d", created)
	}

	for _, e := range []types.Extraction{a, b} {
		vec, err := st.GetEmbedding(e.ID)
		if err != nil {
			t.Fatalf("GetEmbedding failed: %v", err)
		}
		if len(vec) != 12 { // 3 float32 values
			t.Errorf("Expected 12-byte vector for %s, got %d bytes", e.ID, len(vec))
		}
	}
}

func TestEmbedSkipsExisting(t *testing.T) {
	st, cleanup := setupEmbedStore(t)
	defer cleanup()

	addExtraction(t, st, "fact a")
	addExtraction(t, st, "fact b")

	svc := &stubService{
		vectors: map[string][]float64{
			"fact a": {1, 0},
			"fact b": {0, 1},
		},
		available:    true,
		modelPresent: true,
	}
	g := New(svc, config.Default())

	if _, err := g.EmbedExtractions(context.Background(), st); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	firstCalls := svc.calls

	created, err := g.EmbedExtractions(context.Background(), st)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if created != 0 {
		t.Errorf("Expected 0 new embeddings on second run, got %d", created)
	}
	if svc.calls != firstCalls {
		t.Errorf("Expected no embed calls on second run, got %d more", svc.calls-firstCalls)
	}
}

func TestEmbedSkipsFailedItems(t *testing.T) {
	st, cleanup := setupEmbedStore(t)
	defer cleanup()

	good := addExtraction(t, st, "fact a")
	bad := addExtraction(t, st, "fact b")

	svc := &stubService{
		vectors:      map[string][]float64{"fact a": {1, 0}},
		available:    true,
		modelPresent: true,
	}
	g := New(svc, config.Default())

	created, err := g.EmbedExtractions(context.Background(), st)
	if err != nil {
		t.Fatalf("EmbedExtractions failed: %v", err)
	}
	if created != 1 {
		t.Errorf("Expected 1 embedding despite a per-item failure, got %d", created)
	}

	has, _ := st.HasEmbedding(good.ID)
	if !has {
		t.Error("Expected the good item to be embedded")
	}
	has, _ = st.HasEmbedding(bad.ID)
	if has {
		t.Error("Expected the failed item to be skipped")
	}
}

func TestEmbedEmptyStore(t *testing.T) {
	st, cleanup := setupEmbedStore(t)
	defer cleanup()

	svc := &stubService{available: true, modelPresent: true}
	g := New(svc, config.Default())

	created, err := g.EmbedExtractions(context.Background(), st)
	if err != nil {
		t.Fatalf("Expected no error on empty store, got %v", err)
	}
	if created != 0 {
		t.Errorf("Expected 0 embeddings, got %d", created)
	}
}

func TestEmbedRequiresService(t *testing.T) {
	st, cleanup := setupEmbedStore(t)
	defer cleanup()
	addExtraction(t, st, "fact a")

	g := New(&stubService{available: false}, config.Default())
	if _, err := g.EmbedExtractions(context.Background(), st); err == nil {
		t.Error("Expected error when the service is unreachable")
	}

	g = New(&stubService{available: true, modelPresent: false}, config.Default())
	if _, err := g.EmbedExtractions(context.Background(), st); err == nil {
		t.Error("Expected error when the embedding model is missing")
	}
}
