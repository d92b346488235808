package similarity

import (
	"math"
	"testing"
)

func TestCosineSelfSimilarity(t *testing.T) {
	vecs := [][]float64{
		{1, 0, 0},
		{0.3, -0.7, 2.1, 0.05},
		{-1, -1, -1},
	}
	for _, v := range vecs {
		score, err := Cosine(v, v)
		if err != nil {
			t.Fatalf("Cosine(v, v) failed: %v", err)
		}
		if math.Abs(score-1.0) > 1e-9 {
			t.Errorf("Expected self-similarity ~1, got %v for %v", score, v)
		}
	}
}

func TestCosineSymmetry(t *testing.T) {
	a := []float64{0.2, 0.8, -0.5}
	b := []float64{1.1, 0.0, 0.4}

	ab, err := Cosine(a, b)
	if err != nil {
		t.Fatalf("Cosine(a, b) failed: %v", err)
	}
	ba, err := Cosine(b, a)
	if err != nil {
		t.Fatalf("Cosine(b, a) failed: %v", err)
	}
	if ab != ba {
		t.Errorf("Expected symmetric similarity, got %v vs %v", ab, ba)
	}
}

func TestCosineZeroVector(t *testing.T) {
	zero := []float64{0, 0, 0}
	other := []float64{1, 2, 3}

	score, err := Cosine(zero, other)
	if err != nil {
		t.Fatalf("Cosine failed: %v", err)
	}
	if score != 0 {
		t.Errorf("Expected exactly 0 for zero vector, got %v", score)
	}

	score, err = Cosine(zero, zero)
	if err != nil {
		t.Fatalf("Cosine failed: %v", err)
	}
	if score != 0 {
		t.Errorf("Expected exactly 0 for two zero vectors, got %v", score)
	}
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float64{1, 2}, []float64{1, 2, 3})
	if err == nil {
		t.Fatal("Expected error for mismatched dimensions")
	}
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float64{0.123456, -9.87, 0, 1e-5, 42.0}
	decoded, err := DecodeVector(EncodeVector(vec))
	if err != nil {
		t.Fatalf("DecodeVector failed: %v", err)
	}
	if len(decoded) != len(vec) {
		t.Fatalf("Expected %d values, got %d", len(vec), len(decoded))
	}
	for i := range vec {
		// float32 precision is all the storage format keeps
		if math.Abs(decoded[i]-vec[i]) > 1e-6*math.Max(1, math.Abs(vec[i])) {
			t.Errorf("Value %d: expected ~%v, got %v", i, vec[i], decoded[i])
		}
	}
}

func TestDecodeVectorBadLength(t *testing.T) {
	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("Expected error for blob length not divisible by 4")
	}
}

func TestFindSimilarPairs(t *testing.T) {
	embeddings := []Embedding{
		{ID: "a", Vector: []float64{1, 0, 0}},
		{ID: "b", Vector: []float64{0.9, 0.1, 0}},
		{ID: "c", Vector: []float64{0, 1, 0}},
		{ID: "d", Vector: []float64{0, 0, 1}},
	}

	pairs, err := FindSimilarPairs(embeddings, 0.7)
	if err != nil {
		t.Fatalf("FindSimilarPairs failed: %v", err)
	}

	for _, p := range pairs {
		if p.Score < 0.7 {
			t.Errorf("Pair %s/%s below threshold: %v", p.AID, p.BID, p.Score)
		}
		if p.AID == p.BID {
			t.Errorf("Self-pair returned: %s", p.AID)
		}
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i].Score > pairs[i-1].Score {
			t.Error("Pairs not sorted by similarity descending")
		}
	}

	// a/b is the only pair above 0.7
	if len(pairs) != 1 || pairs[0].AID != "a" || pairs[0].BID != "b" {
		t.Errorf("Expected single pair a/b, got %+v", pairs)
	}
}

func TestFindSimilarPairsEmpty(t *testing.T) {
	pairs, err := FindSimilarPairs(nil, 0.5)
	if err != nil {
		t.Fatalf("FindSimilarPairs failed: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("Expected no pairs, got %d", len(pairs))
	}
}

func TestClusterBySimilarity(t *testing.T) {
	embeddings := []Embedding{
		{ID: "a1", Vector: []float64{1, 0}},
		{ID: "a2", Vector: []float64{0.95, 0.05}},
		{ID: "b1", Vector: []float64{0, 1}},
		{ID: "a3", Vector: []float64{0.9, 0.1}},
	}

	clusters, err := ClusterBySimilarity(embeddings, 0.9)
	if err != nil {
		t.Fatalf("ClusterBySimilarity failed: %v", err)
	}

	if len(clusters) != 2 {
		t.Fatalf("Expected 2 clusters, got %d: %v", len(clusters), clusters)
	}
	if len(clusters[0]) != 3 {
		t.Errorf("Expected first cluster [a1 a2 a3], got %v", clusters[0])
	}
	if len(clusters[1]) != 1 || clusters[1][0] != "b1" {
		t.Errorf("Expected second cluster [b1], got %v", clusters[1])
	}
}

func TestClusterFirstMatchWins(t *testing.T) {
	// c is similar to both seed clusters; it must join the first one
	// that clears the threshold, not the best-scoring one.
	embeddings := []Embedding{
		{ID: "seed1", Vector: []float64{1, 0.3}},
		{ID: "seed2", Vector: []float64{0.3, 1}},
		{ID: "c", Vector: []float64{0.7, 0.75}},
	}

	clusters, err := ClusterBySimilarity(embeddings, 0.75)
	if err != nil {
		t.Fatalf("ClusterBySimilarity failed: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("Expected 2 clusters, got %d: %v", len(clusters), clusters)
	}
	if len(clusters[0]) != 2 || clusters[0][1] != "c" {
		t.Errorf("Expected c in the first cluster, got %v", clusters)
	}
}

func TestClusterEmptyInput(t *testing.T) {
	clusters, err := ClusterBySimilarity(nil, 0.8)
	if err != nil {
		t.Fatalf("ClusterBySimilarity failed: %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("Expected no clusters, got %v", clusters)
	}
}
