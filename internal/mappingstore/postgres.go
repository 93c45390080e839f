package mappingstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS mapping_documents (
	name       TEXT PRIMARY KEY,
	document   JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

	selectDocumentSQL       = `SELECT document FROM mapping_documents WHERE name = $1`
	selectDocumentLockedSQL = `SELECT document FROM mapping_documents WHERE name = $1 FOR UPDATE`
	insertEmptyDocumentSQL  = `INSERT INTO mapping_documents (name, document) VALUES ($1, '{}'::jsonb) ON CONFLICT (name) DO NOTHING`
	updateDocumentSQL       = `UPDATE mapping_documents SET document = $2, updated_at = NOW() WHERE name = $1`
)

// PostgresBackend keeps the document as one JSONB row. Updates lock the
// row with SELECT ... FOR UPDATE for the length of the transaction.
type PostgresBackend struct {
	db   *sql.DB
	name string
}

// NewPostgresBackend returns a backend storing the document under name.
func NewPostgresBackend(db *sql.DB, name string) *PostgresBackend {
	return &PostgresBackend{db: db, name: name}
}

// EnsureSchema creates the mapping_documents table when missing.
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create mapping_documents table: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Load(ctx context.Context) (domain.MappingDocument, error) {
	var raw []byte
	err := b.db.QueryRowContext(ctx, selectDocumentSQL, b.name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MappingDocument{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select mapping document: %w", err)
	}
	return decodeDocument(raw)
}

func (b *PostgresBackend) Update(
	ctx context.Context,
	mutate func(domain.MappingDocument) (domain.MappingDocument, error),
) (err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// The row must exist for FOR UPDATE to have something to lock.
	if _, err = tx.ExecContext(ctx, insertEmptyDocumentSQL, b.name); err != nil {
		return fmt.Errorf("ensure mapping document row: %w", err)
	}

	var raw []byte
	if err = tx.QueryRowContext(ctx, selectDocumentLockedSQL, b.name).Scan(&raw); err != nil {
		return fmt.Errorf("lock mapping document: %w", err)
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		return err
	}

	next, err := mutate(doc)
	if err != nil {
		return err
	}

	encoded, err := encodeDocument(next)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, updateDocumentSQL, b.name, encoded); err != nil {
		return fmt.Errorf("write mapping document: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit mapping document: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func encodeDocument(doc domain.MappingDocument) ([]byte, error) {
	if doc == nil {
		doc = domain.MappingDocument{}
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode mapping document: %w", err)
	}
	return encoded, nil
}

func decodeDocument(raw []byte) (domain.MappingDocument, error) {
	doc := domain.MappingDocument{}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode mapping document: %w", err)
	}
	return doc, nil
}
