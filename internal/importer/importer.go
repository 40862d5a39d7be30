// Package importer bulk-loads instruction files into the store. A file
// holds one JSON object or an array of objects, each with task_type,
// instruction_text (at least 10 characters), and optional metadata.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/errors"
)

// Adder is the slice of the instruction store the importer needs.
// *store.Store satisfies it.
type Adder interface {
	Add(ctx context.Context, text, taskType string, metadata map[string]any) (string, error)
}

// FileResult aggregates one file import.
type FileResult struct {
	// Success is true when no entry failed.
	Success bool `json:"success"`

	ImportedCount int      `json:"imported_count"`
	ErrorCount    int      `json:"error_count"`
	ImportedIDs   []string `json:"imported_ids"`
	Errors        []string `json:"errors"`
}

// DirResult aggregates an import across every *.json file in a
// directory.
type DirResult struct {
	Success        bool     `json:"success"`
	ImportedCount  int      `json:"imported_count"`
	ErrorCount     int      `json:"error_count"`
	FilesProcessed int      `json:"files_processed"`
	ImportedIDs    []string `json:"imported_ids"`
	Errors         []string `json:"errors"`
}

// entry is the on-disk instruction shape.
type entry struct {
	TaskType        string         `json:"task_type"`
	InstructionText string         `json:"instruction_text"`
	Metadata        map[string]any `json:"metadata"`
}

// Importer loads instruction files into a store.
type Importer struct {
	store  Adder
	logger zerolog.Logger
}

// New returns an Importer over the given store.
func New(store Adder, logger zerolog.Logger) *Importer {
	return &Importer{
		store:  store,
		logger: logger.With().Str("component", "importer").Logger(),
	}
}

// ImportFile loads one JSON file. Per-entry failures (missing fields,
// store rejections) are collected into the result rather than aborting
// the file; an unreadable or unparseable file is an error.
func (im *Importer) ImportFile(ctx context.Context, path string) (FileResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, errors.Wrapf(errors.ErrImportFailed, "read %s: %v", path, err)
	}

	items, err := decodeItems(raw)
	if err != nil {
		return FileResult{}, errors.Wrapf(errors.ErrImportFailed, "%s: %v", path, err)
	}

	result := FileResult{ImportedIDs: []string{}, Errors: []string{}}
	for idx, item := range items {
		var e entry
		if err := json.Unmarshal(item, &e); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Item %d: Must be a JSON object", idx))
			continue
		}
		if e.TaskType == "" || e.InstructionText == "" {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Item %d: Missing required fields (task_type, instruction_text)", idx))
			continue
		}
		id, err := im.store.Add(ctx, e.InstructionText, e.TaskType, e.Metadata)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Item %d: %v", idx, err))
			continue
		}
		result.ImportedIDs = append(result.ImportedIDs, id)
	}

	result.ImportedCount = len(result.ImportedIDs)
	result.ErrorCount = len(result.Errors)
	result.Success = result.ErrorCount == 0

	im.logger.Info().
		Str("file", path).
		Int("imported", result.ImportedCount).
		Int("errors", result.ErrorCount).
		Msg("instruction file imported")
	return result, nil
}

// decodeItems accepts a single JSON object or an array; items are
// validated individually by the caller.
func decodeItems(raw []byte) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single map[string]any
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("file must contain a JSON object or array: %w", err)
	}
	return []json.RawMessage{raw}, nil
}

// ImportDir loads every *.json file in a directory, aggregating
// per-file results. A file-level failure becomes an aggregated error
// entry; the remaining files are still processed.
func (im *Importer) ImportDir(ctx context.Context, dir string) (DirResult, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return DirResult{}, errors.Wrapf(errors.ErrImportFailed, "directory not found: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return DirResult{}, errors.Wrapf(errors.ErrImportFailed, "scan %s: %v", dir, err)
	}
	if len(files) == 0 {
		return DirResult{}, errors.Wrapf(errors.ErrImportFailed, "no JSON files found in directory: %s", dir)
	}

	result := DirResult{ImportedIDs: []string{}, Errors: []string{}}
	for _, file := range files {
		fileResult, err := im.ImportFile(ctx, file)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", filepath.Base(file), err))
			continue
		}
		result.ImportedIDs = append(result.ImportedIDs, fileResult.ImportedIDs...)
		for _, e := range fileResult.Errors {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", filepath.Base(file), e))
		}
	}

	result.FilesProcessed = len(files)
	result.ImportedCount = len(result.ImportedIDs)
	result.ErrorCount = len(result.Errors)
	result.Success = result.ErrorCount == 0
	return result, nil
}
