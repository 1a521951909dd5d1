package embedcache

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/zakerytclarke/teapot/internal/domain"
)

// Store persists embeddings in a sqlite database keyed by model and content hash.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the sqlite cache at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS embedding_cache (
		model        TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		embedding    BLOB NOT NULL,
		ctime        INTEGER NOT NULL,
		PRIMARY KEY (model, content_hash)
	)`)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// Get returns the cached vector, ok=false when absent.
func (s *Store) Get(ctx context.Context, model, contentHash string) ([]float64, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding FROM embedding_cache WHERE model = ? AND content_hash = ?`,
		model, contentHash).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	vec, err := decodeVector(blob)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Save upserts a vector.
func (s *Store) Save(ctx context.Context, model, contentHash string, vec []float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO embedding_cache (model, content_hash, embedding, ctime) VALUES (?, ?, ?, ?)
		 ON CONFLICT(model, content_hash) DO UPDATE SET embedding = excluded.embedding, ctime = excluded.ctime`,
		model, contentHash, encodeVector(vec), time.Now().Unix())
	return err
}

// Prune deletes entries older than maxAge and reports how many were removed.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM embedding_cache WHERE ctime < ?`, time.Now().Add(-maxAge).Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// WrapStore puts the persistent cache in front of e.
func WrapStore(e domain.Embedder, store *Store) domain.Embedder {
	if e == nil || store == nil || isFitter(e) {
		return e
	}
	return &dbEmbedder{next: e, store: store}
}

type dbEmbedder struct {
	next  domain.Embedder
	store *Store
}

func (d *dbEmbedder) Name() string { return d.next.Name() }

func (d *dbEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	model := d.next.Name()
	_, contentHash := buildCacheKey(model, text)
	values, ok, err := d.store.Get(ctx, model, contentHash)
	if err != nil {
		return nil, err
	}
	if ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)", zap.String("model", model))
		return values, nil
	}
	res, err := d.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := d.store.Save(ctx, model, contentHash, res); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
	return res, nil
}

func encodeVector(vec []float64) []byte {
	buf := make([]byte, 8*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("corrupt embedding blob of %d bytes", len(buf))
	}
	vec := make([]float64, len(buf)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec, nil
}
