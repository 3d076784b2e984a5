// Package sqlite persists index snapshots as one SQLite database per user
// directory: <dir>/<sanitized user id>/index.db.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver

	"briefing/internal/domain"
	"briefing/internal/vectorstore"
)

const dbName = "index.db"

const schema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE chunks (
	position INTEGER PRIMARY KEY,
	text     TEXT NOT NULL,
	vector   BLOB NOT NULL
);`

// Storage writes snapshots under a base directory.
type Storage struct {
	dir string
}

func NewStorage(dir string) *Storage {
	if dir == "" {
		dir = "vector_stores"
	}
	return &Storage{dir: dir}
}

// Path returns the database path used for key.
func (s *Storage) Path(key string) string {
	return filepath.Join(s.dir, vectorstore.SanitizeUserID(key), dbName)
}

// Save replaces the stored snapshot for key. The database is written to a
// temporary file and renamed into place so readers never see a partial index.
func (s *Storage) Save(ctx context.Context, key string, snap vectorstore.Snapshot) error {
	final := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(final), 0o700); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	// Each writer gets its own temporary file; the last rename wins.
	f, err := os.CreateTemp(filepath.Dir(final), dbName+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary index: %w", err)
	}
	tmp := f.Name()
	_ = f.Close()

	if err := writeDB(ctx, tmp, snap); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("installing index: %w", err)
	}
	return nil
}

func writeDB(ctx context.Context, path string, snap vectorstore.Snapshot) error {
	if len(snap.Chunks) != len(snap.Vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	meta := map[string]string{
		"fingerprint": snap.Fingerprint,
		"embedder":    snap.Embedder,
		"dimension":   strconv.Itoa(snap.Dimension),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("writing meta: %w", err)
		}
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (position, text, vector) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()
	for i, text := range snap.Chunks {
		if _, err := stmt.ExecContext(ctx, i, text, encodeVector(snap.Vectors[i])); err != nil {
			return fmt.Errorf("writing chunk %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Load reads the snapshot for key, returning domain.ErrNotFound when no index
// has been persisted.
func (s *Storage) Load(ctx context.Context, key string) (*vectorstore.Snapshot, error) {
	path := s.Path(key)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	snap := &vectorstore.Snapshot{}
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, err
		}
		switch k {
		case "fingerprint":
			snap.Fingerprint = v
		case "embedder":
			snap.Embedder = v
		case "dimension":
			snap.Dimension, _ = strconv.Atoi(v)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, `SELECT text, vector FROM chunks ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("reading chunks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var text string
		var blob []byte
		if err := rows.Scan(&text, &blob); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		snap.Chunks = append(snap.Chunks, text)
		snap.Vectors = append(snap.Vectors, vec)
	}
	return snap, rows.Err()
}

func encodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("corrupt vector blob of %d bytes", len(b))
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v, nil
}
