// Package sqlite is the default section store, backed by an embedded
// SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/store"
	"github.com/dgallion1/docinsight/internal/store/sqlite/migrations"
)

var _ store.Store = (*Store)(nil)

// Store is a store.Store over a single SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

// StoreDocuments writes each document with its sections in one transaction.
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
	meta, err := json.Marshal(nonNilMeta(doc.Metadata))
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, path, title, author, created_at, metadata, content_hash, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.SourcePath, doc.Title, nullString(doc.Author), nullTime(doc.CreatedAt),
		string(meta), nullString(doc.ContentHash), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("document seq: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO sections (document_seq, heading, content, order_index) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare section insert: %w", err)
	}
	defer stmt.Close()
	for _, sec := range doc.Sections {
		if strings.TrimSpace(sec.Content) == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, seq, nullString(sec.Heading), sec.Content, sec.OrderIndex); err != nil {
			return fmt.Errorf("insert section: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) FindByContentHash(ctx context.Context, hash string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM documents WHERE content_hash = ? ORDER BY seq LIMIT 1", hash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find by hash: %w", err)
	}
	return id, true, nil
}

const sectionColumns = `d.id, d.title, d.path, s.heading, s.content, s.order_index`

func (s *Store) FetchAllSections(ctx context.Context) ([]doctree.SectionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sectionColumns+`
		FROM sections s
		JOIN documents d ON d.seq = s.document_seq
		WHERE LOWER(s.content) LIKE ? ESCAPE '\'
		ORDER BY s.order_index, d.seq, s.id
		LIMIT ?`, likePattern(keywords), limit)
	if err != nil {
		return nil, fmt.Errorf("search sections: %w", err)
	}
	return scanSections(rows)
}

func (s *Store) ListDocuments(ctx context.Context) ([]doctree.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
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
			info                  doctree.DocumentInfo
			author, created, hash sql.NullString
			meta, ingested        string
		)
		if err := rows.Scan(&info.ID, &info.Path, &info.Title, &author, &created, &meta, &hash, &ingested, &info.SectionCount); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		info.Author = author.String
		info.ContentHash = hash.String
		info.CreatedAt = parseTime(created)
		if t := parseTime(sql.NullString{String: ingested, Valid: true}); t != nil {
			info.IngestedAt = *t
		}
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &info.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", info.ID, err)
			}
		}
		docs = append(docs, info)
	}
	return docs, rows.Err()
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func scanSections(rows *sql.Rows) ([]doctree.SectionRecord, error) {
	defer rows.Close()
	var out []doctree.SectionRecord
	for rows.Next() {
		var rec doctree.SectionRecord
		var heading sql.NullString
		if err := rows.Scan(&rec.DocumentID, &rec.DocumentTitle, &rec.DocumentPath, &heading, &rec.Content, &rec.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		rec.Heading = heading.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// likePattern builds a lower-cased LIKE pattern matching keywords anywhere,
// with LIKE wildcards in the input escaped.
func likePattern(keywords string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(keywords)) + "%"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil
	}
	return &t
}

func nonNilMeta(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
