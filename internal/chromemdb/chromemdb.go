package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// VectorDBManager owns the chromem database and the single collection the
// pipeline writes to. Writes are serialized; reads may run concurrently with
// each other but not with a write.
type VectorDBManager struct {
	mu             sync.RWMutex
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	embed          chromem.EmbeddingFunc
	dbPath         string
	inMemory       bool
	compress       bool
	encryptionKey  string
}

// Options configures NewVectorDBManager.
type Options struct {
	DBPath         string
	CollectionName string
	InMemory       bool
	Compress       bool
	EncryptionKey  string
	// EmbeddingFunc is only consulted by chromem for documents or queries
	// without a precomputed embedding.
	EmbeddingFunc chromem.EmbeddingFunc
}

// NewVectorDBManager opens the database. The collection is not created
// until the first write, so an empty directory reads as "no index".
func NewVectorDBManager(opts Options) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if opts.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(opts.DBPath, opts.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	m := &VectorDBManager{
		db:             db,
		collectionName: opts.CollectionName,
		embed:          opts.EmbeddingFunc,
		dbPath:         opts.DBPath,
		inMemory:       opts.InMemory,
		compress:       opts.Compress,
		encryptionKey:  opts.EncryptionKey,
	}
	m.collection = db.GetCollection(opts.CollectionName, opts.EmbeddingFunc)
	return m, nil
}

// Exists reports whether the collection has been created.
func (m *VectorDBManager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collection != nil
}

// Count returns the number of stored entries, 0 when there is no collection.
func (m *VectorDBManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// AddChunks inserts all documents or none. The collection is created on
// first use. If chromem fails part way, the documents of this batch are
// removed again and entries the batch overwrote are restored.
func (m *VectorDBManager) AddChunks(ctx context.Context, documents []chromem.Document) error {
	if len(documents) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.collection == nil {
		c, err := m.db.GetOrCreateCollection(m.collectionName, nil, m.embed)
		if err != nil {
			return fmt.Errorf("failed to create/get collection: %w", err)
		}
		m.collection = c
		log.Info().Str("collection", m.collectionName).Msg("Created vector collection")
	}

	ids := make([]string, len(documents))
	var prior []chromem.Document
	seen := make(map[string]bool, len(documents))
	for i, doc := range documents {
		ids[i] = doc.ID
		if seen[doc.ID] {
			continue
		}
		seen[doc.ID] = true
		if existing, err := m.collection.GetByID(ctx, doc.ID); err == nil {
			prior = append(prior, existing)
		}
	}

	err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU())
	if err == nil {
		return nil
	}

	m.rollback(ids, prior)
	return fmt.Errorf("failed to add documents: %w", err)
}

// rollback removes ids and puts back the entries they replaced.
func (m *VectorDBManager) rollback(ids []string, prior []chromem.Document) {
	ctx := context.Background()
	if err := m.collection.Delete(ctx, nil, nil, ids...); err != nil {
		log.Warn().Err(err).Int("documents", len(ids)).Msg("Rollback of partial insert failed")
	}
	if len(prior) == 0 {
		return
	}
	if err := m.collection.AddDocuments(ctx, prior, runtime.NumCPU()); err != nil {
		log.Error().Err(err).Int("documents", len(prior)).Msg("Failed to restore overwritten entries")
	}
}

// Reload reopens a persistent database so entries written by other
// processes become visible. In-memory databases are left as they are.
func (m *VectorDBManager) Reload() error {
	if m.inMemory {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	db, err := chromem.NewPersistentDB(m.dbPath, m.compress)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	m.db = db
	m.collection = db.GetCollection(m.collectionName, m.embed)
	log.Info().Str("collection", m.collectionName).Int("count", m.countLocked()).Msg("Reloaded vector index")
	return nil
}

func (m *VectorDBManager) countLocked() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// Search returns up to k entries closest to embedding, most similar first.
// A missing or empty collection returns no results and no error.
func (m *VectorDBManager) Search(ctx context.Context, embedding []float32, k int) ([]chromem.Result, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.collection == nil || k <= 0 {
		return nil, nil
	}
	count := m.collection.Count()
	if count == 0 {
		return nil, nil
	}
	k = min(k, count)

	results, err := m.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}

// DeleteCollection drops the collection and all of its entries.
func (m *VectorDBManager) DeleteCollection() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.collection == nil {
		return nil
	}
	if err := m.db.DeleteCollection(m.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	m.collection = nil
	return nil
}

// Export writes the collection to filePath, encrypted when an encryption
// key is configured.
func (m *VectorDBManager) Export(ctx context.Context, filePath string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.collection == nil {
		return fmt.Errorf("collection %s does not exist", m.collectionName)
	}
	if filePath == "" {
		filePath = m.defaultExportPath()
	}

	log.Debug().
		Str("collection", m.collectionName).
		Str("file", filePath).
		Bool("compress", m.compress).
		Msg("Exporting collection")

	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import loads the collection from a file written by Export.
func (m *VectorDBManager) Import(ctx context.Context, filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if filePath == "" {
		filePath = m.defaultExportPath()
	}
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	m.collection = m.db.GetCollection(m.collectionName, m.embed)
	return nil
}

func (m *VectorDBManager) defaultExportPath() string {
	name := m.collectionName + ".chromem"
	if m.compress {
		name += ".gz"
	}
	return filepath.Join(filepath.Dir(filepath.Clean(m.dbPath)), name)
}
