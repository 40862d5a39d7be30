// Package store implements the instruction store: CRUD over runbook
// instructions plus semantic retrieval through a pluggable vector index.
//
// The index is treated as a black box that stores documents with an
// embedding vector and answers k-nearest-neighbor queries. Two
// implementations are provided: RedisIndex (RediSearch vector index)
// for production and MemoryIndex for tests and local development.
package store

import "context"

// Document is the unit stored in an index: instruction fields plus the
// embedding vector the index searches over.
type Document struct {
	// ID is the opaque document identifier.
	ID string

	// Text is the instruction text the vector was computed from.
	Text string

	// TaskType tags the document with a task category.
	TaskType string

	// Metadata holds free-form attributes.
	Metadata map[string]any

	// Vector is the embedding of Text.
	Vector []float32
}

// Hit is one k-nearest-neighbor result.
type Hit struct {
	// Doc is the matched document.
	Doc Document

	// Distance is the similarity distance reported by the index.
	// Lower is more similar.
	Distance float64
}

// Index is the storage and search backend for instruction documents.
//
// Implementations must return errors.ErrInstructionNotFound from Get and
// Delete when the id does not exist, and errors.ErrIndexUnavailable from
// Search when the vector index cannot answer queries.
type Index interface {
	// Put stores or replaces a document.
	Put(ctx context.Context, doc Document) error

	// Get returns the document with the given id.
	Get(ctx context.Context, id string) (Document, error)

	// Delete removes the document with the given id.
	Delete(ctx context.Context, id string) error

	// List returns all stored documents in no particular order.
	List(ctx context.Context) ([]Document, error)

	// Search returns the k nearest documents to the query vector,
	// ordered by ascending distance. A non-empty taskType restricts
	// the search to documents with that exact task type.
	Search(ctx context.Context, vector []float32, taskType string, k int) ([]Hit, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// Embedder maps texts to embedding vectors, one vector per input text in
// input order. *llm.OpenAIClient satisfies this interface.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
