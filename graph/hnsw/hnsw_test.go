package hnsw

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyIndex(t *testing.T) {
	ix := New(3, DefaultConfig())

	results, err := ix.Search([]float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, ix.Len())
}

func TestAddRejectsWrongDimension(t *testing.T) {
	ix := New(3, DefaultConfig())

	err := ix.Add("a", []float32{1, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 3")
}

func TestSearchRejectsWrongDimension(t *testing.T) {
	ix := New(3, DefaultConfig())
	require.NoError(t, ix.Add("a", []float32{1, 0, 0}))

	_, err := ix.Search([]float32{1, 0}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 3")
}

func TestNearestOrdering(t *testing.T) {
	ix := New(3, DefaultConfig())

	require.NoError(t, ix.Add("a", []float32{1, 0, 0}))
	require.NoError(t, ix.Add("b", []float32{0.9, 0.1, 0}))
	require.NoError(t, ix.Add("c", []float32{0, 1, 0}))

	results, err := ix.Search([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestDistanceRange(t *testing.T) {
	ix := New(2, DefaultConfig())

	require.NoError(t, ix.Add("same", []float32{1, 0}))
	require.NoError(t, ix.Add("orthogonal", []float32{0, 1}))
	require.NoError(t, ix.Add("opposite", []float32{-1, 0}))

	results, err := ix.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.InDelta(t, 0.0, float64(results[0].Distance), 1e-5)
	assert.InDelta(t, 1.0, float64(results[1].Distance), 1e-5)
	assert.InDelta(t, 2.0, float64(results[2].Distance), 1e-5)
}

func TestReplaceExistingID(t *testing.T) {
	ix := New(2, DefaultConfig())

	require.NoError(t, ix.Add("a", []float32{1, 0}))
	require.NoError(t, ix.Add("a", []float32{0, 1}))
	assert.Equal(t, 1, ix.Len())

	results, err := ix.Search([]float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.0, float64(results[0].Distance), 1e-5)
}

func TestRemove(t *testing.T) {
	ix := New(2, DefaultConfig())

	require.NoError(t, ix.Add("a", []float32{1, 0}))
	require.NoError(t, ix.Add("b", []float32{0, 1}))

	ix.Remove("a")
	assert.Equal(t, 1, ix.Len())

	results, err := ix.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)

	// Removing the last node empties the index.
	ix.Remove("b")
	results, err = ix.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRemoveMissingIsNoop(t *testing.T) {
	ix := New(2, DefaultConfig())
	require.NoError(t, ix.Add("a", []float32{1, 0}))
	ix.Remove("nope")
	assert.Equal(t, 1, ix.Len())
}

func TestRecallOnClusteredData(t *testing.T) {
	const dim = 16
	rng := rand.New(rand.NewSource(7))
	ix := New(dim, DefaultConfig())

	vectors := make(map[string][]float32)
	for i := 0; i < 300; i++ {
		vec := make([]float32, dim)
		for d := range vec {
			vec[d] = float32(rng.NormFloat64())
		}
		id := fmt.Sprintf("v%03d", i)
		vectors[id] = vec
		require.NoError(t, ix.Add(id, vec))
	}

	// For each of a few probes, the approximate top-10 should strongly
	// overlap the exact top-10.
	for probe := 0; probe < 10; probe++ {
		query := make([]float32, dim)
		for d := range query {
			query[d] = float32(rng.NormFloat64())
		}

		exact := bruteForce(vectors, query, 10)
		approx, err := ix.Search(query, 10)
		require.NoError(t, err)
		require.Len(t, approx, 10)

		exactSet := make(map[string]bool, len(exact))
		for _, r := range exact {
			exactSet[r.ID] = true
		}
		hits := 0
		for _, r := range approx {
			if exactSet[r.ID] {
				hits++
			}
		}
		assert.GreaterOrEqual(t, hits, 8, "probe %d recall too low", probe)
	}
}

func bruteForce(vectors map[string][]float32, query []float32, k int) []Result {
	qn := vectorNorm(query)
	results := make([]Result, 0, len(vectors))
	for id, vec := range vectors {
		results = append(results, Result{ID: id, Distance: cosineDistance(query, vec, qn, vectorNorm(vec))})
	}
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			if results[j].Distance < results[i].Distance {
				results[i], results[j] = results[j], results[i]
			}
		}
	}
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func TestZeroVector(t *testing.T) {
	ix := New(2, DefaultConfig())

	require.NoError(t, ix.Add("zero", []float32{0, 0}))
	require.NoError(t, ix.Add("unit", []float32{1, 0}))

	results, err := ix.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "unit", results[0].ID)
	assert.False(t, math.IsNaN(float64(results[1].Distance)))
}
