// Package store defines the persistence contract for parsed documents and
// their sections. Backends live in subpackages.
package store

import (
	"context"
	"errors"

	"github.com/dgallion1/docinsight/internal/doctree"
)

// DefaultSearchLimit caps SearchSections when the caller passes no limit.
const DefaultSearchLimit = 20

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// Store persists documents and serves their sections back in a stable order:
// document insertion order, then section order_index.
type Store interface {
	// StoreDocuments writes each document and its sections. A document is
	// written atomically where the backend allows it.
	StoreDocuments(ctx context.Context, docs []doctree.ParsedDocument) error

	// FindByContentHash reports the id of a stored document with the hash.
	FindByContentHash(ctx context.Context, hash string) (id string, found bool, err error)

	// FetchAllSections returns every stored section joined with its document.
	FetchAllSections(ctx context.Context) ([]doctree.SectionRecord, error)

	// SearchSections does a case-insensitive substring match on section
	// content, ordered by order_index. A limit <= 0 uses DefaultSearchLimit.
	SearchSections(ctx context.Context, keywords string, limit int) ([]doctree.SectionRecord, error)

	ListDocuments(ctx context.Context) ([]doctree.DocumentInfo, error)

	// DeleteDocument removes a document and its sections.
	DeleteDocument(ctx context.Context, id string) error

	Close() error
}
