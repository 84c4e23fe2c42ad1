// Package postgres is a section store for shared deployments, backed by a
// pgx connection pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/store"
)

//go:embed schema.sql
var schema string

var _ store.Store = (*Store)(nil)

type Store struct {
	Pool *pgxpool.Pool
}

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() error {
	if s != nil && s.Pool != nil {
		s.Pool.Close()
	}
	return nil
}

func (s *Store) StoreDocuments(ctx context.Context, docs []doctree.ParsedDocument) error {
	for _, doc := range docs {
		if err := s.storeDocument(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) storeDocument(ctx context.Context, doc doctree.ParsedDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	meta := doc.Metadata
	if meta == nil {
		meta = map[string]string{}
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var seq int64
	err = tx.QueryRow(ctx, `
		INSERT INTO documents (id, path, title, author, created_at, metadata, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq`,
		doc.ID, doc.SourcePath, doc.Title, nullable(doc.Author), doc.CreatedAt, meta, nullable(doc.ContentHash),
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}

	batch := &pgx.Batch{}
	for _, sec := range doc.Sections {
		if strings.TrimSpace(sec.Content) == "" {
			continue
		}
		batch.Queue(`INSERT INTO sections (document_seq, heading, content, order_index) VALUES ($1, $2, $3, $4)`,
			seq, nullable(sec.Heading), sec.Content, sec.OrderIndex)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert sections: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) FindByContentHash(ctx context.Context, hash string) (string, bool, error) {
	var id string
	err := s.Pool.QueryRow(ctx,
		`SELECT id FROM documents WHERE content_hash = $1 ORDER BY seq LIMIT 1`, hash).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find by hash: %w", err)
	}
	return id, true, nil
}

const sectionColumns = `d.id, d.title, d.path, s.heading, s.content, s.order_index`

func (s *Store) FetchAllSections(ctx context.Context) ([]doctree.SectionRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+sectionColumns+`
		FROM sections s
		JOIN documents d ON d.seq = s.document_seq
		ORDER BY d.seq, s.order_index, s.id`)
	if err != nil {
		return nil, fmt.Errorf("fetch sections: %w", err)
	}
	return scanSections(rows)
}

func (s *Store) SearchSections(ctx context.Context, keywords string, limit int) ([]doctree.SectionRecord, error) {
	if limit <= 0 {
		limit = store.DefaultSearchLimit
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+sectionColumns+`
		FROM sections s
		JOIN documents d ON d.seq = s.document_seq
		WHERE strpos(lower(s.content), lower($1)) > 0
		ORDER BY s.order_index, d.seq, s.id
		LIMIT $2`, keywords, limit)
	if err != nil {
		return nil, fmt.Errorf("search sections: %w", err)
	}
	return scanSections(rows)
}

func (s *Store) ListDocuments(ctx context.Context) ([]doctree.DocumentInfo, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT d.id, d.path, d.title, d.author, d.created_at, d.metadata, d.content_hash, d.ingested_at,
			(SELECT COUNT(*) FROM sections s WHERE s.document_seq = d.seq)
		FROM documents d
		ORDER BY d.seq`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []doctree.DocumentInfo
	for rows.Next() {
		var (
			info         doctree.DocumentInfo
			author, hash *string
			created      *time.Time
			count        int64
		)
		if err := rows.Scan(&info.ID, &info.Path, &info.Title, &author, &created, &info.Metadata, &hash, &info.IngestedAt, &count); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if author != nil {
			info.Author = *author
		}
		if hash != nil {
			info.ContentHash = *hash
		}
		info.CreatedAt = created
		info.SectionCount = int(count)
		docs = append(docs, info)
	}
	return docs, rows.Err()
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func scanSections(rows pgx.Rows) ([]doctree.SectionRecord, error) {
	defer rows.Close()
	var out []doctree.SectionRecord
	for rows.Next() {
		var rec doctree.SectionRecord
		var heading *string
		if err := rows.Scan(&rec.DocumentID, &rec.DocumentTitle, &rec.DocumentPath, &heading, &rec.Content, &rec.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		if heading != nil {
			rec.Heading = *heading
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
