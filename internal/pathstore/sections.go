package pathstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/store"
)

const (
	source        = "docinsight:ingest"
	memoryType    = "document"
	defaultPrefix = "ediscovery"
)

var _ store.Store = (*SectionStore)(nil)

// ErrScanLimit means a prefix holds more nodes than the configured list
// limit, so a read would be incomplete.
var ErrScanLimit = errors.New("pathstore: scan exceeded list limit")

// SectionStore keeps documents and sections as pathstore nodes:
//
//	{prefix}/documents/{id}         document meta
//	{prefix}/sections/{id}/{n}      one section per node
//	{prefix}/by_hash/{hash}/{id}    content-hash index
//
// Reads scan whole prefixes and join in memory. A scan that returns more
// than listLimit nodes fails with ErrScanLimit rather than serve a partial
// snapshot.
type SectionStore struct {
	client    *Client
	prefix    string
	listLimit int
	now       func() time.Time
}

func NewSectionStore(client *Client, prefix string, listLimit int) *SectionStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &SectionStore{
		client:    client,
		prefix:    strings.TrimSuffix(prefix, "/"),
		listLimit: listLimit,
		now:       time.Now,
	}
}

type documentValue struct {
	ID           string            `json:"id"`
	Path         string            `json:"path"`
	Title        string            `json:"title"`
	Author       string            `json:"author,omitempty"`
	CreatedAt    *time.Time        `json:"created_at,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	ContentHash  string            `json:"content_hash,omitempty"`
	SectionCount int               `json:"section_count"`
	IngestedAt   time.Time         `json:"ingested_at"`
}

type sectionValue struct {
	DocumentID string `json:"doc_id"`
	Heading    string `json:"heading,omitempty"`
	Content    string `json:"content"`
	OrderIndex int    `json:"order_index"`
}

type hashValue struct {
	DocumentID string `json:"doc_id"`
}

func (s *SectionStore) key(parts ...string) string {
	return s.prefix + "/" + strings.Join(parts, "/")
}

// scan lists every node under key. One node past the limit is requested so
// a prefix holding exactly listLimit nodes still reads in full.
func (s *SectionStore) scan(ctx context.Context, key string) ([]Node, error) {
	if s.listLimit <= 0 {
		return s.client.ListChildren(ctx, key, 0)
	}
	nodes, err := s.client.ListChildren(ctx, key, s.listLimit+1)
	if err != nil {
		return nil, err
	}
	if len(nodes) > s.listLimit {
		return nil, fmt.Errorf("%w: %s holds more than %d nodes", ErrScanLimit, key, s.listLimit)
	}
	return nodes, nil
}

func (s *SectionStore) put(ctx context.Context, key string, v any) error {
	return s.client.PutNode(ctx, key, NodeRequest{
		Value:      v,
		MergeMode:  "replace",
		MemoryType: memoryType,
		Source:     source,
	})
}

func (s *SectionStore) StoreDocuments(ctx context.Context, docs []doctree.ParsedDocument) error {
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}

		n := 0
		for _, sec := range doc.Sections {
			if strings.TrimSpace(sec.Content) == "" {
				continue
			}
			val := sectionValue{DocumentID: doc.ID, Heading: sec.Heading, Content: sec.Content, OrderIndex: sec.OrderIndex}
			if err := s.put(ctx, s.key("sections", doc.ID, fmt.Sprintf("%08d", n)), val); err != nil {
				return fmt.Errorf("store section %s/%d: %w", doc.ID, n, err)
			}
			n++
		}

		// The document node is written last so readers never see a
		// document whose sections are still being written.
		meta := documentValue{
			ID:           doc.ID,
			Path:         doc.SourcePath,
			Title:        doc.Title,
			Author:       doc.Author,
			CreatedAt:    doc.CreatedAt,
			Metadata:     doc.Metadata,
			ContentHash:  doc.ContentHash,
			SectionCount: n,
			IngestedAt:   s.now().UTC(),
		}
		if err := s.put(ctx, s.key("documents", doc.ID), meta); err != nil {
			return fmt.Errorf("store document %s: %w", doc.ID, err)
		}
		if doc.ContentHash != "" {
			if err := s.put(ctx, s.key("by_hash", doc.ContentHash, doc.ID), hashValue{DocumentID: doc.ID}); err != nil {
				return fmt.Errorf("store hash index %s: %w", doc.ID, err)
			}
		}
	}
	return nil
}

func (s *SectionStore) FindByContentHash(ctx context.Context, hash string) (string, bool, error) {
	nodes, err := s.scan(ctx, s.key("by_hash", hash))
	if err != nil {
		return "", false, err
	}
	var ids []string
	for _, n := range nodes {
		var v hashValue
		if err := n.Decode(&v); err != nil || v.DocumentID == "" {
			continue
		}
		ids = append(ids, v.DocumentID)
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	sort.Strings(ids)
	return ids[0], true, nil
}

// documents returns stored documents in ingestion order.
func (s *SectionStore) documents(ctx context.Context) ([]documentValue, error) {
	nodes, err := s.scan(ctx, s.key("documents"))
	if err != nil {
		return nil, err
	}
	docs := make([]documentValue, 0, len(nodes))
	for _, n := range nodes {
		var d documentValue
		if err := n.Decode(&d); err != nil || d.ID == "" {
			continue
		}
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].IngestedAt.Equal(docs[j].IngestedAt) {
			return docs[i].IngestedAt.Before(docs[j].IngestedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (s *SectionStore) FetchAllSections(ctx context.Context) ([]doctree.SectionRecord, error) {
	docs, err := s.documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	nodes, err := s.scan(ctx, s.key("sections"))
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}

	byDoc := make(map[string][]sectionValue, len(docs))
	for _, n := range nodes {
		var v sectionValue
		if err := n.Decode(&v); err != nil || v.DocumentID == "" {
			continue
		}
		byDoc[v.DocumentID] = append(byDoc[v.DocumentID], v)
	}

	var out []doctree.SectionRecord
	for _, d := range docs {
		secs := byDoc[d.ID]
		sort.SliceStable(secs, func(i, j int) bool { return secs[i].OrderIndex < secs[j].OrderIndex })
		for _, sec := range secs {
			out = append(out, doctree.SectionRecord{
				DocumentID:    d.ID,
				DocumentTitle: d.Title,
				DocumentPath:  d.Path,
				Heading:       sec.Heading,
				Content:       sec.Content,
				OrderIndex:    sec.OrderIndex,
			})
		}
	}
	return out, nil
}

func (s *SectionStore) SearchSections(ctx context.Context, keywords string, limit int) ([]doctree.SectionRecord, error) {
	if limit <= 0 {
		limit = store.DefaultSearchLimit
	}
	all, err := s.FetchAllSections(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(keywords)
	var hits []doctree.SectionRecord
	for _, rec := range all {
		if strings.Contains(strings.ToLower(rec.Content), needle) {
			hits = append(hits, rec)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].OrderIndex < hits[j].OrderIndex })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *SectionStore) ListDocuments(ctx context.Context) ([]doctree.DocumentInfo, error) {
	docs, err := s.documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	var out []doctree.DocumentInfo
	for _, d := range docs {
		out = append(out, doctree.DocumentInfo{
			ID:           d.ID,
			Path:         d.Path,
			Title:        d.Title,
			Author:       d.Author,
			CreatedAt:    d.CreatedAt,
			Metadata:     d.Metadata,
			ContentHash:  d.ContentHash,
			SectionCount: d.SectionCount,
			IngestedAt:   d.IngestedAt,
		})
	}
	return out, nil
}

func (s *SectionStore) DeleteDocument(ctx context.Context, id string) error {
	node, err := s.client.GetNode(ctx, s.key("documents", id))
	if err != nil {
		return err
	}
	if node == nil {
		return fmt.Errorf("document %s: %w", id, store.ErrNotFound)
	}
	var d documentValue
	if err := node.Decode(&d); err != nil {
		return fmt.Errorf("decode document %s: %w", id, err)
	}

	if err := s.client.DeleteNode(ctx, s.key("documents", id), false); err != nil {
		return err
	}
	if d.ContentHash != "" {
		if err := s.client.DeleteNode(ctx, s.key("by_hash", d.ContentHash, id), false); err != nil {
			return err
		}
	}
	return s.client.DeleteNode(ctx, s.key("sections", id), true)
}

func (s *SectionStore) Close() error {
	s.client.Close()
	return nil
}
