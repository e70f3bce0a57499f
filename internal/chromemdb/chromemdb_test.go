package chromemdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(id, content string, embedding ...float32) chromem.Document {
	return chromem.Document{
		ID:        id,
		Content:   content,
		Metadata:  map[string]string{"source": "test"},
		Embedding: embedding,
	}
}

func newMemoryManager(t *testing.T) *VectorDBManager {
	t.Helper()
	m, err := NewVectorDBManager(Options{CollectionName: "test", InMemory: true})
	require.NoError(t, err)
	return m
}

func TestSearch_NoCollection(t *testing.T) {
	m := newMemoryManager(t)

	assert.False(t, m.Exists())
	assert.Equal(t, 0, m.Count())

	results, err := m.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_RequiresEmbedding(t *testing.T) {
	m := newMemoryManager(t)
	_, err := m.Search(context.Background(), nil, 3)
	assert.Error(t, err)
}

func TestAddChunksAndSearch(t *testing.T) {
	m := newMemoryManager(t)
	ctx := context.Background()

	err := m.AddChunks(ctx, []chromem.Document{
		doc("a", "north", 1, 0, 0),
		doc("b", "north-east", 0.7, 0.7, 0),
		doc("c", "east", 0, 1, 0),
	})
	require.NoError(t, err)
	assert.True(t, m.Exists())
	assert.Equal(t, 3, m.Count())

	results, err := m.Search(ctx, []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "north", results[0].Content)
	assert.Equal(t, "north-east", results[1].Content)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)

	// k larger than the collection is clamped
	results, err = m.Search(ctx, []float32{0, 1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "east", results[0].Content)
}

func TestAddChunks_Incremental(t *testing.T) {
	m := newMemoryManager(t)
	ctx := context.Background()

	require.NoError(t, m.AddChunks(ctx, []chromem.Document{doc("a", "one", 1, 0)}))
	require.NoError(t, m.AddChunks(ctx, []chromem.Document{doc("b", "two", 0, 1)}))
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.AddChunks(ctx, nil))
	assert.Equal(t, 2, m.Count())
}

func TestAddChunks_FailureLeavesNothing(t *testing.T) {
	boom := errors.New("embedding backend down")
	m, err := NewVectorDBManager(Options{
		CollectionName: "test",
		InMemory:       true,
		EmbeddingFunc: func(context.Context, string) ([]float32, error) {
			return nil, boom
		},
	})
	require.NoError(t, err)

	// the second document has no embedding, so chromem has to call the
	// failing embedding func
	err = m.AddChunks(context.Background(), []chromem.Document{
		doc("a", "has vector", 1, 0),
		doc("b", "needs vector"),
	})
	require.Error(t, err)
	assert.Equal(t, 0, m.Count())
}

func TestAddChunks_FailedOverwriteKeepsPriorEntry(t *testing.T) {
	m, err := NewVectorDBManager(Options{
		CollectionName: "test",
		InMemory:       true,
		EmbeddingFunc: func(context.Context, string) ([]float32, error) {
			return nil, errors.New("embedding backend down")
		},
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.AddChunks(ctx, []chromem.Document{doc("a", "original", 1, 0)}))

	// re-ingesting the same content yields the same id; the batch fails on "b"
	err = m.AddChunks(ctx, []chromem.Document{
		doc("a", "replacement", 0, 1),
		doc("b", "needs vector"),
	})
	require.Error(t, err)
	assert.Equal(t, 1, m.Count())

	results, err := m.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "original", results[0].Content)
	assert.Equal(t, "test", results[0].Metadata["source"])
}

func TestPersistentReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	ctx := context.Background()

	m, err := NewVectorDBManager(Options{DBPath: dir, CollectionName: "persist"})
	require.NoError(t, err)
	require.NoError(t, m.AddChunks(ctx, []chromem.Document{doc("a", "kept", 1, 0)}))

	reopened, err := NewVectorDBManager(Options{DBPath: dir, CollectionName: "persist"})
	require.NoError(t, err)
	assert.True(t, reopened.Exists())
	assert.Equal(t, 1, reopened.Count())

	results, err := reopened.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kept", results[0].Content)
}

func TestReload_SeesOtherWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	ctx := context.Background()

	reader, err := NewVectorDBManager(Options{DBPath: dir, CollectionName: "persist"})
	require.NoError(t, err)
	assert.False(t, reader.Exists())

	writer, err := NewVectorDBManager(Options{DBPath: dir, CollectionName: "persist"})
	require.NoError(t, err)
	require.NoError(t, writer.AddChunks(ctx, []chromem.Document{doc("a", "from writer", 1, 0)}))

	assert.Equal(t, 0, reader.Count())
	require.NoError(t, reader.Reload())
	assert.Equal(t, 1, reader.Count())

	results, err := reader.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "from writer", results[0].Content)
}

func TestReload_InMemoryKeepsEntries(t *testing.T) {
	m := newMemoryManager(t)
	require.NoError(t, m.AddChunks(context.Background(), []chromem.Document{doc("a", "kept", 1, 0)}))
	require.NoError(t, m.Reload())
	assert.Equal(t, 1, m.Count())
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "backup.chromem")

	src := newMemoryManager(t)
	require.NoError(t, src.AddChunks(ctx, []chromem.Document{doc("a", "exported", 1, 0)}))
	require.NoError(t, src.Export(ctx, file))

	dst := newMemoryManager(t)
	require.NoError(t, dst.Import(ctx, file))
	assert.Equal(t, 1, dst.Count())
}

func TestExport_NoCollection(t *testing.T) {
	m := newMemoryManager(t)
	assert.Error(t, m.Export(context.Background(), filepath.Join(t.TempDir(), "x.chromem")))
}

func TestDeleteCollection(t *testing.T) {
	m := newMemoryManager(t)
	ctx := context.Background()

	require.NoError(t, m.DeleteCollection())
	require.NoError(t, m.AddChunks(ctx, []chromem.Document{doc("a", "gone", 1, 0)}))
	require.NoError(t, m.DeleteCollection())
	assert.False(t, m.Exists())
	assert.Equal(t, 0, m.Count())
}
