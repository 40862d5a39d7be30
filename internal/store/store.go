package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/errors"
)

// defaultRetrieveResults is used when a caller passes k <= 0.
const defaultRetrieveResults = 5

// Store is the instruction store: CRUD over runbook instructions plus
// semantic retrieval. Every stored instruction is embedded through the
// Embedder and written to the Index; queries are embedded the same way
// and answered with a nearest-neighbor search. There is no read cache:
// every retrieval goes to the index.
type Store struct {
	index    Index
	embedder Embedder
	logger   zerolog.Logger
}

// New returns a Store over the given index and embedder.
func New(index Index, embedder Embedder, logger zerolog.Logger) *Store {
	return &Store{
		index:    index,
		embedder: embedder,
		logger:   logger.With().Str("component", "store").Logger(),
	}
}

// validateText checks an instruction text against the minimum length.
func validateText(text string) error {
	if len(strings.TrimSpace(text)) < domain.MinInstructionTextLen {
		return errors.Wrapf(errors.ErrInvalidInstruction,
			"instruction text must be at least %d characters", domain.MinInstructionTextLen)
	}
	return nil
}

// Add stores a new instruction and returns its generated id. An empty
// taskType defaults to the general category. TaskType is mirrored into
// the metadata so the index can filter on it.
func (s *Store) Add(ctx context.Context, text, taskType string, metadata map[string]any) (string, error) {
	if err := validateText(text); err != nil {
		return "", err
	}
	if taskType == "" {
		taskType = domain.GeneralTaskType
	}

	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return "", errors.Wrap(err, "embed instruction")
	}

	id := uuid.NewString()
	doc := Document{
		ID:       id,
		Text:     text,
		TaskType: taskType,
		Metadata: withTaskType(metadata, taskType),
		Vector:   vectors[0],
	}
	if err := s.index.Put(ctx, doc); err != nil {
		return "", err
	}

	s.logger.Info().
		Str("instruction_id", id).
		Str("task_type", taskType).
		Msg("instruction added")
	return id, nil
}

// AddBatch stores several instructions with a single embedding call and
// returns their generated ids in input order. Validation runs before any
// write, so a bad entry fails the whole batch.
func (s *Store) AddBatch(ctx context.Context, items []domain.Instruction) ([]string, error) {
	if len(items) == 0 {
		return nil, errors.ErrNoInstructions
	}

	texts := make([]string, len(items))
	for i, item := range items {
		if err := validateText(item.Text); err != nil {
			return nil, errors.Wrapf(err, "instruction %d", i)
		}
		texts[i] = item.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, errors.Wrap(err, "embed instructions")
	}

	ids := make([]string, len(items))
	for i, item := range items {
		taskType := item.TaskType
		if taskType == "" {
			taskType = domain.GeneralTaskType
		}
		id := uuid.NewString()
		doc := Document{
			ID:       id,
			Text:     item.Text,
			TaskType: taskType,
			Metadata: withTaskType(item.Metadata, taskType),
			Vector:   vectors[i],
		}
		if err := s.index.Put(ctx, doc); err != nil {
			return nil, errors.Wrapf(err, "instruction %d", i)
		}
		ids[i] = id
	}

	s.logger.Info().Int("count", len(ids)).Msg("instruction batch added")
	return ids, nil
}

// Retrieve returns the k instructions most similar to the query, ordered
// by ascending distance as reported by the index; no re-ranking happens
// here. A non-empty taskType restricts results to that exact task type.
// k <= 0 falls back to the default result count.
func (s *Store) Retrieve(ctx context.Context, query, taskType string, k int) ([]domain.ScoredInstruction, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.Wrap(errors.ErrEmptyValue, "query")
	}
	if k <= 0 {
		k = defaultRetrieveResults
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, errors.Wrap(err, "embed query")
	}

	hits, err := s.index.Search(ctx, vectors[0], taskType, k)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ScoredInstruction, len(hits))
	for i, hit := range hits {
		results[i] = domain.ScoredInstruction{
			Instruction: docToInstruction(hit.Doc),
			Distance:    hit.Distance,
		}
	}
	return results, nil
}

// Get returns a stored instruction by id.
func (s *Store) Get(ctx context.Context, id string) (domain.Instruction, error) {
	doc, err := s.index.Get(ctx, id)
	if err != nil {
		return domain.Instruction{}, err
	}
	return docToInstruction(doc), nil
}

// Update replaces the text and/or merges metadata on an existing
// instruction. Empty text keeps the existing text; changed text is
// re-embedded. Empty taskType keeps the existing category.
func (s *Store) Update(ctx context.Context, id, text, taskType string, metadata map[string]any) error {
	doc, err := s.index.Get(ctx, id)
	if err != nil {
		return err
	}

	if text != "" && text != doc.Text {
		if err := validateText(text); err != nil {
			return err
		}
		vectors, err := s.embedder.Embed(ctx, []string{text})
		if err != nil {
			return errors.Wrap(err, "embed instruction")
		}
		doc.Text = text
		doc.Vector = vectors[0]
	}
	if taskType != "" {
		doc.TaskType = taskType
	}
	for k, v := range metadata {
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]any)
		}
		doc.Metadata[k] = v
	}
	doc.Metadata = withTaskType(doc.Metadata, doc.TaskType)

	if err := s.index.Put(ctx, doc); err != nil {
		return err
	}
	s.logger.Info().Str("instruction_id", id).Msg("instruction updated")
	return nil
}

// Delete removes a stored instruction by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.index.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("instruction_id", id).Msg("instruction deleted")
	return nil
}

// List returns stored instructions, optionally filtered to one task type
// and bounded by limit (limit <= 0 means no bound).
func (s *Store) List(ctx context.Context, taskType string, limit int) ([]domain.Instruction, error) {
	docs, err := s.index.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]domain.Instruction, 0, len(docs))
	for _, doc := range docs {
		if taskType != "" && doc.TaskType != taskType {
			continue
		}
		items = append(items, docToInstruction(doc))
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

// Healthy reports whether the backing index answers.
func (s *Store) Healthy(ctx context.Context) bool {
	return s.index.Ping(ctx) == nil
}

// withTaskType returns metadata with the task_type key set, copying the
// input so callers' maps are never mutated.
func withTaskType(metadata map[string]any, taskType string) map[string]any {
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out["task_type"] = taskType
	return out
}

func docToInstruction(doc Document) domain.Instruction {
	return domain.Instruction{
		ID:       doc.ID,
		Text:     doc.Text,
		TaskType: doc.TaskType,
		Metadata: doc.Metadata,
	}
}
