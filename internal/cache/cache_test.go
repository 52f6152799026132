package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saad688/pdftoword/internal/models"
)

func sampleDoc() *models.StructuredDocument {
	return &models.StructuredDocument{
		TotalPages: 2,
		Pages: []models.Page{
			{PageNumber: 1, Blocks: []models.Block{{Kind: models.BlockParagraph, Text: "Hello"}}},
			{PageNumber: 2, Blocks: []models.Block{{Kind: models.BlockTable, Text: "| a |\n|---|\n| 1 |"}}},
		},
	}
}

type failingStore struct {
	saves int
}

func (f *failingStore) Load(context.Context, string) LookupResult {
	return LookupResult{Outcome: MissOnError, Err: errors.New("disk on fire")}
}

func (f *failingStore) Save(context.Context, string, *models.StructuredDocument) error {
	f.saves++
	return errors.New("read-only filesystem")
}

func (f *failingStore) Count(context.Context) (int, error) {
	return 0, errors.New("cannot list")
}

func TestHash_StableAndContentSensitive(t *testing.T) {
	a := Hash([]byte("%PDF-1.4 one"))
	assert.Equal(t, a, Hash([]byte("%PDF-1.4 one")))
	assert.NotEqual(t, a, Hash([]byte("%PDF-1.4 two")))
	assert.Len(t, a, 64)
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	res := store.Load(ctx, "abc")
	assert.Equal(t, Miss, res.Outcome)
	assert.Nil(t, res.Document)

	require.NoError(t, store.Save(ctx, "abc", sampleDoc()))

	res = store.Load(ctx, "abc")
	require.Equal(t, Hit, res.Outcome)
	assert.Equal(t, sampleDoc(), res.Document)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFileStore_CorruptEntryIsMissOnError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	res := store.Load(context.Background(), "bad")
	assert.Equal(t, MissOnError, res.Outcome)
	assert.Error(t, res.Err)
}

func TestFileStore_PageCountMismatchIsMissOnError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "short.json"), []byte(`{"total_pages":3,"pages":[]}`), 0o644))

	res := store.Load(context.Background(), "short")
	assert.Equal(t, MissOnError, res.Outcome)
}

func TestCache_LoadFoldsErrorsIntoMiss(t *testing.T) {
	c := New(&failingStore{}, nil)
	doc, ok := c.Load(context.Background(), "abc")
	assert.False(t, ok)
	assert.Nil(t, doc)
}

func TestCache_SaveSwallowsStoreErrors(t *testing.T) {
	store := &failingStore{}
	c := New(store, nil)

	assert.NotPanics(t, func() {
		assert.False(t, c.Save(context.Background(), "abc", sampleDoc()))
	})
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 0, c.Count(context.Background()))
}

func TestCache_SkipsDocumentsWithFailedPages(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	c := New(store, nil)
	ctx := context.Background()

	doc := sampleDoc()
	doc.FailedPages = []int{2}

	assert.False(t, c.Save(ctx, "abc", doc))
	_, ok := c.Load(ctx, "abc")
	assert.False(t, ok)

	assert.True(t, c.Save(ctx, "def", sampleDoc()))
	got, ok := c.Load(ctx, "def")
	require.True(t, ok)
	assert.Equal(t, 2, got.TotalPages)
	assert.Equal(t, 1, c.Count(ctx))
}

func TestCache_NilStoreAlwaysMisses(t *testing.T) {
	c := New(nil, nil)
	_, ok := c.Load(context.Background(), "abc")
	assert.False(t, ok)
	assert.False(t, c.Save(context.Background(), "abc", sampleDoc()))
}
