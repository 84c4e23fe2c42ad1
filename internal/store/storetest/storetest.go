// Package storetest holds the behaviour every store.Store backend must
// share. Backend tests call Run with a constructor for a fresh, empty store.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/store"
)

// Run exercises the store.Store contract against stores built by open.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("EmptyStore", func(t *testing.T) { testEmpty(t, open(t)) })
	t.Run("FetchOrder", func(t *testing.T) { testFetchOrder(t, open(t)) })
	t.Run("ContentHash", func(t *testing.T) { testContentHash(t, open(t)) })
	t.Run("Search", func(t *testing.T) { testSearch(t, open(t)) })
	t.Run("ListDocuments", func(t *testing.T) { testList(t, open(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, open(t)) })
}

// Doc builds a document with one section per content string.
func Doc(id, title, path string, contents ...string) doctree.ParsedDocument {
	doc := doctree.ParsedDocument{
		ID:          id,
		SourcePath:  path,
		Title:       title,
		ContentHash: "hash-" + id,
	}
	for i, c := range contents {
		doc.Sections = append(doc.Sections, doctree.Section{Content: c, OrderIndex: i})
	}
	return doc
}

func testEmpty(t *testing.T, s store.Store) {
	ctx := context.Background()
	secs, err := s.FetchAllSections(ctx)
	require.NoError(t, err)
	assert.Empty(t, secs)

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, found, err := s.FindByContentHash(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func testFetchOrder(t *testing.T, s store.Store) {
	ctx := context.Background()

	first := Doc("01A", "First", "/docs/first.txt")
	first.Sections = []doctree.Section{
		{Heading: "Page 2", Content: "later page", OrderIndex: 1000},
		{Heading: "Page 1", Content: "early page", OrderIndex: 0},
		{Content: "   ", OrderIndex: 5},
	}
	require.NoError(t, s.StoreDocuments(ctx, []doctree.ParsedDocument{first}))
	require.NoError(t, s.StoreDocuments(ctx, []doctree.ParsedDocument{
		Doc("01B", "Second", "/docs/second.txt", "second zero", "second one"),
	}))

	secs, err := s.FetchAllSections(ctx)
	require.NoError(t, err)
	require.Len(t, secs, 4, "blank sections are not stored")

	want := []string{"early page", "later page", "second zero", "second one"}
	for i, w := range want {
		assert.Equal(t, w, secs[i].Content, "position %d", i)
	}
	assert.Equal(t, "Page 1", secs[0].Heading)
	assert.Equal(t, "First", secs[0].DocumentTitle)
	assert.Equal(t, "/docs/first.txt", secs[0].DocumentPath)
	assert.Equal(t, "01A", secs[0].DocumentID)
	assert.Equal(t, "", secs[2].Heading)
	assert.Equal(t, 1, secs[3].OrderIndex)
}

func testContentHash(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.StoreDocuments(ctx, []doctree.ParsedDocument{Doc("01C", "Memo", "/m.txt", "x")}))

	id, found, err := s.FindByContentHash(ctx, "hash-01C")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "01C", id)

	_, found, err = s.FindByContentHash(ctx, "hash-other")
	require.NoError(t, err)
	assert.False(t, found)
}

func testSearch(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.StoreDocuments(ctx, []doctree.ParsedDocument{
		Doc("01D", "A", "/a.txt", "Nothing here", "The WIRE transfer", "100% certain"),
		Doc("01E", "B", "/b.txt", "wire fraud"),
	}))

	got, err := s.SearchSections(ctx, "wire", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Ordered by order_index: B's section is 0, A's match is 1.
	assert.Equal(t, "wire fraud", got[0].Content)
	assert.Equal(t, "The WIRE transfer", got[1].Content)

	got, err = s.SearchSections(ctx, "wire", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.SearchSections(ctx, "0%", 10)
	require.NoError(t, err)
	require.Len(t, got, 1, "wildcards in keywords match literally")
	assert.Equal(t, "100% certain", got[0].Content)

	got, err = s.SearchSections(ctx, "absent", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testList(t *testing.T, s store.Store) {
	ctx := context.Background()
	created := time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC)
	doc := Doc("01F", "Mail", "/m.eml", "a", "b")
	doc.Author = "alice@example.com"
	doc.CreatedAt = &created
	doc.Metadata = map[string]string{"Subject": "Mail"}
	before := time.Now().Add(-time.Minute)
	require.NoError(t, s.StoreDocuments(ctx, []doctree.ParsedDocument{doc, Doc("01G", "Other", "/o.txt", "c")}))

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	d := docs[0]
	assert.Equal(t, "01F", d.ID)
	assert.Equal(t, "/m.eml", d.Path)
	assert.Equal(t, "alice@example.com", d.Author)
	assert.Equal(t, 2, d.SectionCount)
	assert.Equal(t, "Mail", d.Metadata["Subject"])
	assert.Equal(t, "hash-01F", d.ContentHash)
	require.NotNil(t, d.CreatedAt)
	assert.True(t, d.CreatedAt.Equal(created))
	assert.True(t, d.IngestedAt.After(before))
	assert.Nil(t, docs[1].CreatedAt)
}

func testDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.StoreDocuments(ctx, []doctree.ParsedDocument{
		Doc("01H", "Keep", "/k.txt", "keep me"),
		Doc("01J", "Drop", "/d.txt", "drop me", "and me"),
	}))

	require.NoError(t, s.DeleteDocument(ctx, "01J"))
	assert.ErrorIs(t, s.DeleteDocument(ctx, "01J"), store.ErrNotFound)

	secs, err := s.FetchAllSections(ctx)
	require.NoError(t, err)
	require.Len(t, secs, 1)
	assert.Equal(t, "keep me", secs[0].Content)

	_, found, err := s.FindByContentHash(ctx, "hash-01J")
	require.NoError(t, err)
	assert.False(t, found)
}
