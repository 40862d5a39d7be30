package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/runbookhq/opsagent/internal/errors"
)

// MemoryIndex is an in-process Index backed by a map with brute-force
// cosine search. It is used in tests and for local development without a
// Redis instance.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryIndex returns an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]Document)}
}

// Put stores or replaces a document.
func (m *MemoryIndex) Put(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

// Get returns the document with the given id.
func (m *MemoryIndex) Get(_ context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, errors.Wrap(errors.ErrInstructionNotFound, id)
	}
	return doc, nil
}

// Delete removes the document with the given id.
func (m *MemoryIndex) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return errors.Wrap(errors.ErrInstructionNotFound, id)
	}
	delete(m.docs, id)
	return nil
}

// List returns all stored documents.
func (m *MemoryIndex) List(_ context.Context) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]Document, 0, len(m.docs))
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

// Search returns the k documents nearest to vector by cosine distance.
// A non-empty taskType restricts candidates to that exact task type.
func (m *MemoryIndex) Search(_ context.Context, vector []float32, taskType string, k int) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]Hit, 0, len(m.docs))
	for _, doc := range m.docs {
		if taskType != "" && doc.TaskType != taskType {
			continue
		}
		hits = append(hits, Hit{Doc: doc, Distance: cosineDistance(vector, doc.Vector)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Ping always succeeds.
func (m *MemoryIndex) Ping(context.Context) error { return nil }

// cosineDistance is 1 - cos(a, b). Mismatched or zero-magnitude vectors
// get the maximum distance instead of an error.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

var _ Index = (*MemoryIndex)(nil)
