// Package similarity is the pure numeric layer: vector packing, cosine
// similarity, pairwise candidate generation and greedy clustering. No
// I/O and no external services.
package similarity

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// EncodeVector packs a vector as little-endian 32-bit floats, the
// storage format for the embeddings table.
func EncodeVector(vec []float64) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	return buf
}

// DecodeVector unpacks a little-endian float32 blob
func DecodeVector(data []byte) ([]float64, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(data))
	}
	vec := make([]float64, len(data)/4)
	for i := range vec {
		vec[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return vec, nil
}

// Cosine computes the cosine similarity of two vectors. A zero-magnitude
// vector yields exactly 0. Unequal lengths indicate a configuration
// defect (mixed embedding models) and return an error.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions don't match: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Embedding is one identified vector
type Embedding struct {
	ID     string
	Vector []float64
}

// Pair is a candidate pair above the similarity threshold
type Pair struct {
	AID   string
	BID   string
	Score float64
}

// FindSimilarPairs scans all pairs exhaustively and keeps those with
// similarity >= threshold, sorted by similarity descending. This is
// the statistical pre-filter that bounds the number of LLM calls, so
// O(n²) here is the cheap side of the trade.
func FindSimilarPairs(embeddings []Embedding, threshold float64) ([]Pair, error) {
	var pairs []Pair
	for i := 0; i < len(embeddings); i++ {
		for j := i + 1; j < len(embeddings); j++ {
			score, err := Cosine(embeddings[i].Vector, embeddings[j].Vector)
			if err != nil {
				return nil, fmt.Errorf("pair %s/%s: %w", embeddings[i].ID, embeddings[j].ID, err)
			}
			if score >= threshold {
				pairs = append(pairs, Pair{
					AID:   embeddings[i].ID,
					BID:   embeddings[j].ID,
					Score: score,
				})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Score > pairs[j].Score })
	return pairs, nil
}

// ClusterBySimilarity groups vectors with single-pass greedy online
// clustering: each vector joins the first existing cluster whose
// running-mean centroid meets the threshold, else seeds a new cluster.
// First match wins, so the result depends on input order; sort inputs
// by a stable key first if cross-run determinism matters.
func ClusterBySimilarity(embeddings []Embedding, threshold float64) ([][]string, error) {
	var (
		clusters  [][]string
		centroids [][]float64
	)

	for _, emb := range embeddings {
		joined := -1
		for i, centroid := range centroids {
			score, err := Cosine(emb.Vector, centroid)
			if err != nil {
				return nil, fmt.Errorf("cluster %d vs %s: %w", i, emb.ID, err)
			}
			if score >= threshold {
				joined = i
				break
			}
		}

		if joined >= 0 {
			clusters[joined] = append(clusters[joined], emb.ID)
			// incremental running mean
			n := float64(len(clusters[joined]))
			centroid := centroids[joined]
			for k := range centroid {
				centroid[k] = (centroid[k]*(n-1) + emb.Vector[k]) / n
			}
		} else {
			clusters = append(clusters, []string{emb.ID})
			centroids = append(centroids, append([]float64(nil), emb.Vector...))
		}
	}
	return clusters, nil
}
