package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndex_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("orders by ascending cosine distance and truncates to k", func(t *testing.T) {
		idx := NewMemoryIndex()
		require.NoError(t, idx.Put(ctx, Document{ID: "exact", Vector: []float32{1, 0}}))
		require.NoError(t, idx.Put(ctx, Document{ID: "close", Vector: []float32{0.9, 0.1}}))
		require.NoError(t, idx.Put(ctx, Document{ID: "far", Vector: []float32{0, 1}}))

		hits, err := idx.Search(ctx, []float32{1, 0}, "", 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "exact", hits[0].Doc.ID)
		assert.Equal(t, "close", hits[1].Doc.ID)
		assert.Less(t, hits[0].Distance, hits[1].Distance)
	})

	t.Run("task type filter excludes other types", func(t *testing.T) {
		idx := NewMemoryIndex()
		require.NoError(t, idx.Put(ctx, Document{ID: "a", TaskType: "password_reset", Vector: []float32{1, 0}}))
		require.NoError(t, idx.Put(ctx, Document{ID: "b", TaskType: "vpn_troubleshooting", Vector: []float32{1, 0}}))

		hits, err := idx.Search(ctx, []float32{1, 0}, "password_reset", 5)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "a", hits[0].Doc.ID)
	})

	t.Run("empty index returns no hits", func(t *testing.T) {
		hits, err := NewMemoryIndex().Search(ctx, []float32{1}, "", 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
		{"length mismatch", []float32{1}, []float32{1, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineDistance(tt.a, tt.b), 1e-9)
		})
	}
}
