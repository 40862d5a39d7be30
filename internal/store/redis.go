package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/errors"
)

// Hash field names used for instruction documents.
const (
	fieldText     = "text"
	fieldTaskType = "task_type"
	fieldMetadata = "metadata"
	fieldVector   = "vector"
	fieldDistance = "distance"
)

// RedisIndex stores instruction documents as Redis hashes and answers
// similarity queries through a RediSearch vector index (FT.SEARCH with a
// KNN clause). Documents survive even when the search module is missing;
// only Search degrades in that case.
type RedisIndex struct {
	client    redis.UniversalClient
	indexName string
	keyPrefix string
	logger    zerolog.Logger

	// The search index is created lazily on first write, once the
	// vector dimension is known.
	createOnce sync.Once
	createErr  error
}

// NewRedisIndex connects to the backend described by cfg. The connection
// is verified with a ping before returning.
func NewRedisIndex(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (*RedisIndex, error) {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrIndexUnavailable, "ping %s:%d: %v", cfg.Host, cfg.Port, err)
	}

	return &RedisIndex{
		client:    client,
		indexName: cfg.Index,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger.With().Str("component", "store.redis").Logger(),
	}, nil
}

// Close releases the underlying connection pool.
func (r *RedisIndex) Close() error {
	return r.client.Close()
}

// Ping reports whether the backend answers.
func (r *RedisIndex) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisIndex) key(id string) string {
	return r.keyPrefix + id
}

// ensureIndex creates the vector index on first use. A failure (for
// example a Redis build without the search module) is logged and
// remembered; document CRUD keeps working and Search reports the index
// as unavailable.
func (r *RedisIndex) ensureIndex(ctx context.Context, dim int) {
	r.createOnce.Do(func() {
		err := r.client.FTCreate(ctx, r.indexName,
			&redis.FTCreateOptions{
				OnHash: true,
				Prefix: []any{r.keyPrefix},
			},
			&redis.FieldSchema{FieldName: fieldText, FieldType: redis.SearchFieldTypeText},
			&redis.FieldSchema{FieldName: fieldTaskType, FieldType: redis.SearchFieldTypeTag},
			&redis.FieldSchema{
				FieldName: fieldVector,
				FieldType: redis.SearchFieldTypeVector,
				VectorArgs: &redis.FTVectorArgs{
					FlatOptions: &redis.FTFlatOptions{
						Type:           "FLOAT32",
						Dim:            dim,
						DistanceMetric: "COSINE",
					},
				},
			},
		).Err()
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			r.createErr = err
			r.logger.Warn().Err(err).
				Str("index", r.indexName).
				Msg("vector index creation failed, similarity search disabled")
		}
	})
}

// Put stores or replaces a document as a hash at keyPrefix+id.
func (r *RedisIndex) Put(ctx context.Context, doc Document) error {
	r.ensureIndex(ctx, len(doc.Vector))

	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return errors.Wrap(err, "marshal metadata")
	}

	fields := map[string]any{
		fieldText:     doc.Text,
		fieldTaskType: doc.TaskType,
		fieldMetadata: string(meta),
		fieldVector:   encodeVector(doc.Vector),
	}
	if err := r.client.HSet(ctx, r.key(doc.ID), fields).Err(); err != nil {
		return errors.Wrapf(err, "store document %s", doc.ID)
	}
	return nil
}

// Get returns the document stored at keyPrefix+id.
func (r *RedisIndex) Get(ctx context.Context, id string) (Document, error) {
	fields, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return Document{}, errors.Wrapf(err, "load document %s", id)
	}
	if len(fields) == 0 {
		return Document{}, errors.Wrap(errors.ErrInstructionNotFound, id)
	}
	return r.docFromFields(id, fields)
}

// Delete removes the document stored at keyPrefix+id.
func (r *RedisIndex) Delete(ctx context.Context, id string) error {
	removed, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return errors.Wrapf(err, "delete document %s", id)
	}
	if removed == 0 {
		return errors.Wrap(errors.ErrInstructionNotFound, id)
	}
	return nil
}

// List scans all documents under the key prefix.
func (r *RedisIndex) List(ctx context.Context) ([]Document, error) {
	var docs []Document
	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "load document %s", key)
		}
		if len(fields) == 0 {
			continue
		}
		doc, err := r.docFromFields(strings.TrimPrefix(key, r.keyPrefix), fields)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "scan documents")
	}
	return docs, nil
}

// Search runs a KNN query against the vector index, optionally
// restricted to one task type through a tag filter.
func (r *RedisIndex) Search(ctx context.Context, vector []float32, taskType string, k int) ([]Hit, error) {
	r.ensureIndex(ctx, len(vector))
	if r.createErr != nil {
		return nil, errors.Wrap(errors.ErrIndexUnavailable, r.createErr.Error())
	}

	filter := "*"
	if taskType != "" {
		filter = fmt.Sprintf("(@%s:{%s})", fieldTaskType, escapeTag(taskType))
	}
	query := fmt.Sprintf("%s=>[KNN %d @%s $vec AS %s]", filter, k, fieldVector, fieldDistance)
	res, err := r.client.FTSearchWithArgs(ctx, r.indexName, query, &redis.FTSearchOptions{
		Return: []redis.FTSearchReturn{
			{FieldName: fieldText},
			{FieldName: fieldTaskType},
			{FieldName: fieldMetadata},
			{FieldName: fieldDistance},
		},
		SortBy:         []redis.FTSearchSortBy{{FieldName: fieldDistance, Asc: true}},
		LimitOffset:    0,
		Limit:          k,
		DialectVersion: 2,
		Params:         map[string]any{"vec": encodeVector(vector)},
	}).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrIndexUnavailable, err.Error())
	}

	hits := make([]Hit, 0, len(res.Docs))
	for _, d := range res.Docs {
		id := strings.TrimPrefix(d.ID, r.keyPrefix)
		doc, err := r.docFromFields(id, d.Fields)
		if err != nil {
			return nil, err
		}
		distance, _ := strconv.ParseFloat(d.Fields[fieldDistance], 64)
		hits = append(hits, Hit{Doc: doc, Distance: distance})
	}
	return hits, nil
}

func (r *RedisIndex) docFromFields(id string, fields map[string]string) (Document, error) {
	doc := Document{
		ID:       id,
		Text:     fields[fieldText],
		TaskType: fields[fieldTaskType],
	}
	if raw := fields[fieldMetadata]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &doc.Metadata); err != nil {
			return Document{}, errors.Wrapf(err, "decode metadata for %s", id)
		}
	}
	if raw := fields[fieldVector]; raw != "" {
		doc.Vector = decodeVector(raw)
	}
	return doc, nil
}

// escapeTag backslash-escapes characters that are special in tag query
// syntax so task types like "vpn-troubleshooting" filter correctly.
func escapeTag(tag string) string {
	var b strings.Builder
	b.Grow(len(tag))
	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// encodeVector packs a float32 slice as little-endian bytes, the layout
// RediSearch expects for FLOAT32 vector fields.
func encodeVector(v []float32) string {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func decodeVector(raw string) []float32 {
	b := []byte(raw)
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

var _ Index = (*RedisIndex)(nil)
