package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-memory VectorStore using brute-force cosine search.
// At the scale of the row corpus (hundreds of documents) a linear scan is
// fast enough and keeps the engine runnable without external services.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	vectorSize int
	points     map[string]Point
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// EnsureCollection creates the collection if missing and validates the vector size.
func (s *MemoryStore) EnsureCollection(_ context.Context, collection string, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("vector size must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.collections[collection]; ok {
		if existing.vectorSize != vectorSize {
			return fmt.Errorf("collection %s has vector size %d, expected %d", collection, existing.vectorSize, vectorSize)
		}
		return nil
	}
	s.collections[collection] = &memoryCollection{
		vectorSize: vectorSize,
		points:     make(map[string]Point),
	}
	return nil
}

// CollectionExists reports whether the collection exists.
func (s *MemoryStore) CollectionExists(_ context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection]
	return ok, nil
}

// Upsert inserts or replaces points by ID.
func (s *MemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %s does not exist", collection)
	}
	for _, p := range points {
		if len(p.Vec) != coll.vectorSize {
			return fmt.Errorf("point %s has vector size %d, expected %d", p.ID, len(p.Vec), coll.vectorSize)
		}
		vec := make([]float32, len(p.Vec))
		copy(vec, p.Vec)
		coll.points[p.ID] = Point{ID: p.ID, Vec: vec, Meta: p.Meta}
	}
	return nil
}

// Search scans every point and returns the top k by cosine similarity,
// ordered by descending score with ties broken by point ID for stability.
func (s *MemoryStore) Search(_ context.Context, collection string, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s does not exist", collection)
	}
	if len(query) != coll.vectorSize {
		return nil, fmt.Errorf("query vector size %d, expected %d", len(query), coll.vectorSize)
	}

	results := make([]SearchResult, 0, len(coll.points))
	for _, p := range coll.points {
		results = append(results, SearchResult{
			PointID: p.ID,
			Score:   CosineSimilarity(query, p.Vec),
			Meta:    p.Meta,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PointID < results[j].PointID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes points by ID. Missing IDs are ignored.
func (s *MemoryStore) Delete(_ context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %s does not exist", collection)
	}
	for _, id := range ids {
		delete(coll.points, id)
	}
	return nil
}

// CosineSimilarity returns the cosine similarity of two vectors.
// Zero-length or mismatched vectors score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
