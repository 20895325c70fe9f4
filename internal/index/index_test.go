package index

import (
	"path/filepath"
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/pngnest/pngnest"
	_ "github.com/pngnest/pngnest/unsplash"
)

const catalogDoc = `[
	{"id": "alvan-nee-ZCHj_2lJP00-unsplash", "caption": "Tabby cat", "tags": ["cat"], "slug": "tabby-cat", "png_url": "https://assets.test/tabby-cat.png"},
	{"id": "cake-shot", "caption": "Birthday cake", "tags": ["birthday"], "slug": "birthday-cake", "png_url": "https://assets.test/birthday-cake.png", "unsplash_id": "V09Io5ln-Qo"},
	{"id": "mystery", "caption": "Mystery", "tags": [], "slug": "mystery", "png_url": "https://assets.test/mystery.png"}
]`

func newTestIndex(t *testing.T) Index {
	t.Helper()
	idx, err := New(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func decodeTestCatalog(t *testing.T, doc string) *pngnest.Catalog {
	t.Helper()
	c, err := pngnest.DecodeCatalog(strings.NewReader(doc), nil)
	if err != nil {
		t.Fatalf("failed to decode catalog: %v", err)
	}
	return c
}

func TestIndexRebuildAndLookup(t *testing.T) {
	assert := assert_.New(t)
	idx := newTestIndex(t)
	c := decodeTestCatalog(t, catalogDoc)

	changed, err := idx.Rebuild(c, false)
	assert.NoError(err)
	assert.True(changed)

	// Explicitly recorded provider ID.
	slug, ok, err := idx.Lookup("V09Io5ln-Qo")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("birthday-cake", slug)

	// Provider ID resolved out of the asset ID.
	slug, ok, err = idx.Lookup("ZCHj_2lJP00")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("tabby-cat", slug)

	_, ok, err = idx.Lookup("aaaaaaaaaaa")
	assert.NoError(err)
	assert.False(ok)

	status, err := idx.Status()
	assert.NoError(err)
	assert.Equal(c.Checksum(), status.Checksum)
	assert.Equal(2, status.Entries)
}

func TestIndexRebuildIdempotentPerChecksum(t *testing.T) {
	assert := assert_.New(t)
	idx := newTestIndex(t)
	c := decodeTestCatalog(t, catalogDoc)

	changed, err := idx.Rebuild(c, false)
	assert.NoError(err)
	assert.True(changed)

	changed, err = idx.Rebuild(c, false)
	assert.NoError(err)
	assert.False(changed)

	changed, err = idx.Rebuild(c, true)
	assert.NoError(err)
	assert.True(changed)

	// A different document rebuilds, and removed assets drop out of the index.
	next := decodeTestCatalog(t, `[
		{"id": "pumpkin-shot", "caption": "Pumpkin", "tags": ["halloween"], "slug": "pumpkin", "png_url": "https://assets.test/pumpkin.png", "unsplash_id": "hallowe2-p1n"}
	]`)
	changed, err = idx.Rebuild(next, false)
	assert.NoError(err)
	assert.True(changed)

	slug, ok, err := idx.Lookup("hallowe2-p1n")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("pumpkin", slug)

	_, ok, err = idx.Lookup("V09Io5ln-Qo")
	assert.NoError(err)
	assert.False(ok)

	entries, err := idx.Entries()
	assert.NoError(err)
	assert.Equal(map[string]string{"hallowe2-p1n": "pumpkin"}, entries)
}

func TestIndexPersistsAcrossReopen(t *testing.T) {
	assert := assert_.New(t)
	path := filepath.Join(t.TempDir(), "index.db")
	c := decodeTestCatalog(t, catalogDoc)

	idx, err := New(path)
	assert.NoError(err)
	changed, err := idx.Rebuild(c, false)
	assert.NoError(err)
	assert.True(changed)
	assert.NoError(idx.Close())

	idx, err = New(path)
	assert.NoError(err)
	defer idx.Close()

	slug, ok, err := idx.Lookup("V09Io5ln-Qo")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("birthday-cake", slug)

	// Same checksum, so reopening does not trigger a rebuild.
	changed, err = idx.Rebuild(c, false)
	assert.NoError(err)
	assert.False(changed)
}

func TestIndexDuplicateProviderIDFirstWins(t *testing.T) {
	assert := assert_.New(t)
	idx := newTestIndex(t)
	c := decodeTestCatalog(t, `[
		{"id": "first", "caption": "First", "tags": [], "slug": "first", "png_url": "https://assets.test/first.png", "unsplash_id": "V09Io5ln-Qo"},
		{"id": "second", "caption": "Second", "tags": [], "slug": "second", "png_url": "https://assets.test/second.png", "unsplash_id": "V09Io5ln-Qo"}
	]`)

	_, err := idx.Rebuild(c, false)
	assert.NoError(err)

	slug, ok, err := idx.Lookup("V09Io5ln-Qo")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("first", slug)
}

func TestIndexInMemoryCatalogAlwaysRebuilds(t *testing.T) {
	assert := assert_.New(t)
	idx := newTestIndex(t)

	c, err := pngnest.NewCatalog([]pngnest.Asset{
		{ID: "first", Slug: "first", PNGURL: "https://assets.test/first.png", UnsplashID: "V09Io5ln-Qo"},
	}, nil)
	assert.NoError(err)
	assert.Equal("", c.Checksum())

	for i := 0; i < 2; i++ {
		changed, err := idx.Rebuild(c, false)
		assert.NoError(err)
		assert.True(changed)
	}
}
