// Package storage provides the SQLite-backed implementation of
// store.Store: one generic documents table plus an equality-index table
// for the fields each collection may be queried on.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"financas/internal/store"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db      *sql.DB
	indexed map[string][]string
}

var _ store.Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, indexed: store.DefaultIndexes()}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) NewID() string {
	return uuid.NewString()
}

func (s *SQLiteStore) Push(ctx context.Context, collection string, doc any) (string, error) {
	id := s.NewID()
	if err := s.BatchWrite(ctx, []store.Op{store.Set(collection, id, doc)}); err != nil {
		return "", err
	}
	slog.DebugContext(ctx, "Document inserted", "collection", collection, "id", id)
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string, dest any) error {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}
	return json.Unmarshal(body, dest)
}

func (s *SQLiteStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	var body []byte
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read document %s/%s: %w", collection, id, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decode stored document %s/%s: %w", collection, id, err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal merged document: %w", err)
	}

	if err := s.writeTx(ctx, tx, collection, id, merged); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Remove(ctx context.Context, collection, id string) error {
	return s.BatchWrite(ctx, []store.Op{store.Delete(collection, id)})
}

func (s *SQLiteStore) Query(ctx context.Context, collection, field, value string, limit int) (map[string]json.RawMessage, error) {
	if !s.fieldIndexed(collection, field) {
		return nil, fmt.Errorf("%s.%s: %w", collection, field, store.ErrFieldNotIndexed)
	}

	q := `SELECT d.id, d.body
	        FROM documents d
	        JOIN document_index i ON i.collection = d.collection AND i.id = d.id
	       WHERE i.collection = ? AND i.field = ? AND i.value = ?`
	args := []any{collection, field, value}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", collection, field, err)
	}
	defer rows.Close()

	result := make(map[string]json.RawMessage)
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan query row: %w", err)
		}
		result[id] = json.RawMessage(body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query rows: %w", err)
	}
	return result, nil
}

func (s *SQLiteStore) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	result := make(map[string]json.RawMessage)
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan list row: %w", err)
		}
		result[id] = json.RawMessage(body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate list rows: %w", err)
	}
	return result, nil
}

// BatchWrite applies all ops inside one SQL transaction.
func (s *SQLiteStore) BatchWrite(ctx context.Context, ops []store.Op) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		if op.Doc == nil {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM document_index WHERE collection = ? AND id = ?`,
				op.Collection, op.ID); err != nil {
				return fmt.Errorf("deindex %s/%s: %w", op.Collection, op.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM documents WHERE collection = ? AND id = ?`,
				op.Collection, op.ID); err != nil {
				return fmt.Errorf("delete %s/%s: %w", op.Collection, op.ID, err)
			}
			continue
		}

		body, err := json.Marshal(op.Doc)
		if err != nil {
			return fmt.Errorf("marshal batch document %s/%s: %w", op.Collection, op.ID, err)
		}
		if err := s.writeTx(ctx, tx, op.Collection, op.ID, body); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	slog.DebugContext(ctx, "Batch committed", "ops", len(ops))
	return nil
}

// writeTx upserts the document body and rebuilds its index rows.
func (s *SQLiteStore) writeTx(ctx context.Context, tx *sql.Tx, collection, id string, body []byte) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)
		 ON CONFLICT (collection, id)
		 DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
		collection, id, string(body))
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_index WHERE collection = ? AND id = ?`,
		collection, id); err != nil {
		return fmt.Errorf("reindex %s/%s: %w", collection, id, err)
	}

	fields := s.indexed[collection]
	if len(fields) == 0 {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decode document for indexing %s/%s: %w", collection, id, err)
	}
	for _, field := range fields {
		value, ok := doc[field].(string)
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO document_index (collection, field, id, value) VALUES (?, ?, ?, ?)`,
			collection, field, id, value); err != nil {
			return fmt.Errorf("index %s/%s on %s: %w", collection, id, field, err)
		}
	}
	return nil
}

func (s *SQLiteStore) fieldIndexed(collection, field string) bool {
	for _, f := range s.indexed[collection] {
		if f == field {
			return true
		}
	}
	return false
}
