package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/vector"
)

// SQLiteStore implements Store using SQLite. Inserts are serialized by
// a mutex so id assignment and row visibility are never interleaved;
// reads run concurrently.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and
// idempotently initializes the schema. Parent directories are created
// if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL UNIQUE,
		original_filename TEXT NOT NULL,
		upload_date TIMESTAMP NOT NULL,
		description TEXT NOT NULL,
		embedding TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Insert appends a record and returns the AUTOINCREMENT id. The write
// is a single statement: either the full row, embedding included, is
// visible or none of it is.
func (s *SQLiteStore) Insert(ctx context.Context, rec *models.ImageRecord) (int64, error) {
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now()
	}
	encoded := vector.EncodeEmbedding(rec.Embedding)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO images (filename, original_filename, upload_date, description, embedding)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.StoredFilename, rec.OriginalFilename, rec.UploadedAt, rec.Description, encoded,
	)
	if err != nil {
		return 0, fmt.Errorf("insert image: %w: %w", ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert image id: %w: %w", ErrPersistence, err)
	}
	rec.ID = id
	return id, nil
}

// ListAll returns all records' metadata in insertion (id) order.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]*models.ImageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, original_filename, upload_date, description
		 FROM images ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list images: %w: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var recs []*models.ImageRecord
	for rows.Next() {
		var rec models.ImageRecord
		if err := rows.Scan(&rec.ID, &rec.StoredFilename, &rec.OriginalFilename,
			&rec.UploadedAt, &rec.Description); err != nil {
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// ListWithEmbeddings returns all records with decoded embeddings in
// insertion order.
func (s *SQLiteStore) ListWithEmbeddings(ctx context.Context) ([]*models.ImageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, original_filename, upload_date, description, embedding
		 FROM images ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list images: %w: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var recs []*models.ImageRecord
	for rows.Next() {
		var rec models.ImageRecord
		var encoded string
		if err := rows.Scan(&rec.ID, &rec.StoredFilename, &rec.OriginalFilename,
			&rec.UploadedAt, &rec.Description, &encoded); err != nil {
			return nil, err
		}
		rec.Embedding, err = vector.DecodeEmbedding(encoded)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", rec.ID, err)
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// GetByID returns the record with the given id, embedding included.
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*models.ImageRecord, error) {
	var rec models.ImageRecord
	var encoded string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, original_filename, upload_date, description, embedding
		 FROM images WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.StoredFilename, &rec.OriginalFilename,
		&rec.UploadedAt, &rec.Description, &encoded)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("image %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get image: %w: %w", ErrPersistence, err)
	}
	rec.Embedding, err = vector.DecodeEmbedding(encoded)
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", id, err)
	}
	return &rec, nil
}

// Count returns the total number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
