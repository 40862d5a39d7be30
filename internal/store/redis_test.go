package store

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/errors"
)

// newMiniRedisIndex starts an in-process Redis and connects a RedisIndex
// to it. Miniredis has no search module, so only document CRUD is
// exercised here; KNN behavior is covered by the MemoryIndex tests.
func newMiniRedisIndex(t *testing.T) *RedisIndex {
	t.Helper()
	mr := miniredis.RunT(t)

	host, portStr, found := strings.Cut(mr.Addr(), ":")
	require.True(t, found)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	idx, err := NewRedisIndex(context.Background(), config.StoreConfig{
		Host:      host,
		Port:      port,
		Index:     "itops_instructions",
		KeyPrefix: "instruction:",
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestRedisIndex_PutGet(t *testing.T) {
	ctx := context.Background()
	idx := newMiniRedisIndex(t)

	doc := Document{
		ID:       "doc-1",
		Text:     "aws ec2 describe-instances --filters Name=instance-state-name,Values=running",
		TaskType: "inventory",
		Metadata: map[string]any{"platform": "aws"},
		Vector:   []float32{0.25, -1.5, 3},
	}
	require.NoError(t, idx.Put(ctx, doc))

	got, err := idx.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Text, got.Text)
	assert.Equal(t, doc.TaskType, got.TaskType)
	assert.Equal(t, "aws", got.Metadata["platform"])
	assert.Equal(t, doc.Vector, got.Vector, "vector must round-trip through the binary encoding")
}

func TestRedisIndex_GetMissing(t *testing.T) {
	idx := newMiniRedisIndex(t)
	_, err := idx.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, errors.ErrInstructionNotFound)
}

func TestRedisIndex_Delete(t *testing.T) {
	ctx := context.Background()
	idx := newMiniRedisIndex(t)

	require.NoError(t, idx.Put(ctx, Document{ID: "doc-1", Text: "x", Vector: []float32{1}}))
	require.NoError(t, idx.Delete(ctx, "doc-1"))
	assert.ErrorIs(t, idx.Delete(ctx, "doc-1"), errors.ErrInstructionNotFound)
}

func TestRedisIndex_List(t *testing.T) {
	ctx := context.Background()
	idx := newMiniRedisIndex(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, idx.Put(ctx, Document{
			ID:     "doc-" + strconv.Itoa(i),
			Text:   "instruction " + strconv.Itoa(i),
			Vector: []float32{float32(i)},
		}))
	}

	docs, err := idx.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	ids := make(map[string]bool, len(docs))
	for _, d := range docs {
		ids[d.ID] = true
	}
	assert.True(t, ids["doc-0"] && ids["doc-1"] && ids["doc-2"])
}

func TestRedisIndex_SearchWithoutSearchModule(t *testing.T) {
	ctx := context.Background()
	idx := newMiniRedisIndex(t)

	// Trigger lazy index creation, which fails on miniredis.
	require.NoError(t, idx.Put(ctx, Document{ID: "doc-1", Text: "x", Vector: []float32{1, 0}}))

	_, err := idx.Search(ctx, []float32{1, 0}, "", 3)
	assert.ErrorIs(t, err, errors.ErrIndexUnavailable)
}

func TestEscapeTag(t *testing.T) {
	assert.Equal(t, "password_reset", escapeTag("password_reset"))
	assert.Equal(t, `vpn\-troubleshooting`, escapeTag("vpn-troubleshooting"))
}

func TestNewRedisIndex_Unreachable(t *testing.T) {
	_, err := NewRedisIndex(context.Background(), config.StoreConfig{
		Host: "127.0.0.1",
		Port: 1, // nothing listens here
	}, zerolog.Nop())
	assert.ErrorIs(t, err, errors.ErrIndexUnavailable)
}

func TestVectorEncoding(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.14159}
	assert.Equal(t, in, decodeVector(encodeVector(in)))
}
