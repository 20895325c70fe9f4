package pngnest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

var (
	ErrDuplicateSlugInCatalog = errors.New("duplicate asset slug in catalog")
	ErrMissingSlug            = errors.New("asset has no slug")
	ErrMissingAssetURL        = errors.New("asset has no png_url")
	ErrUnknownVariant         = errors.New("unknown asset variant")
)

// A Variant selects which delivery format of an Asset to use.
type Variant string

const (
	// VariantPNG is the plain transparent cutout.
	VariantPNG Variant = "png"
	// VariantSticker is the bordered "sticker" version.
	VariantSticker Variant = "sticker"
)

// An Asset is one catalog entry: a processed image and the metadata the gallery serves
// for it. Field names follow the generated catalog document.
type Asset struct {
	ID          string   `json:"id"`
	Caption     string   `json:"caption"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags"`
	Slug        string   `json:"slug"`
	Author      string   `json:"author,omitempty"`
	OriginalURL string   `json:"original_url,omitempty"`
	PNGURL      string   `json:"png_url"`
	StickerURL  string   `json:"sticker_url,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	// Enrichment fields captured from the provider API by the importer; absent on
	// entries that predate it.
	UnsplashID       string `json:"unsplash_id,omitempty"`
	DownloadLocation string `json:"download_location,omitempty"`
	Username         string `json:"username,omitempty"`
	PhotographerURL  string `json:"photographer_url,omitempty"`
}

// URL returns the asset URL for the requested variant. A missing sticker variant falls
// back to the plain PNG rather than failing the delivery.
func (a *Asset) URL(variant Variant) (string, error) {
	switch variant {
	case VariantPNG, "":
		return a.PNGURL, nil
	case VariantSticker:
		if a.StickerURL != "" {
			return a.StickerURL, nil
		}
		return a.PNGURL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
}

// HasTag reports whether the asset carries the given tag.
func (a *Asset) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Created parses the asset's build timestamp; the zero time is returned for entries
// without one.
func (a *Asset) Created() time.Time {
	if a.CreatedAt == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, a.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// A Catalog is an immutable snapshot of the asset catalog document. Reloading the
// document produces a whole new Catalog; an existing snapshot is never mutated, so it
// can be read from any goroutine without locking.
type Catalog struct {
	assets   []Asset
	bySlug   map[string]int
	byID     map[string]int
	checksum string
	loadedAt time.Time
}

type catalogOptions struct {
	assetBase string
}

type CatalogOption func(*catalogOptions)

// WithAssetBase resolves relative asset URLs against the given base URL. Absolute URLs
// and catalogs without a configured base pass through untouched.
func WithAssetBase(base string) CatalogOption {
	return func(o *catalogOptions) {
		o.assetBase = base
	}
}

// NewCatalog validates and indexes a set of assets into a Catalog snapshot. Tags are
// normalized against the vocabulary (nil means DefaultVocabulary): legacy spellings are
// mapped to their canonical form and an empty tag list becomes the catch-all tag.
func NewCatalog(assets []Asset, vocab *Vocabulary, opts ...CatalogOption) (*Catalog, error) {
	if vocab == nil {
		vocab = DefaultVocabulary
	}
	var options catalogOptions
	for _, opt := range opts {
		opt(&options)
	}
	var base *url.URL
	if options.assetBase != "" {
		var err error
		if base, err = url.Parse(options.assetBase); err != nil {
			return nil, fmt.Errorf("invalid asset base: %w", err)
		}
	}
	c := &Catalog{
		assets:   make([]Asset, len(assets)),
		bySlug:   make(map[string]int, len(assets)),
		byID:     make(map[string]int, len(assets)),
		loadedAt: time.Now(),
	}
	copy(c.assets, assets)
	for i := range c.assets {
		a := &c.assets[i]
		if a.Slug == "" {
			return nil, fmt.Errorf("%w: asset %q", ErrMissingSlug, a.ID)
		}
		if a.PNGURL == "" {
			return nil, fmt.Errorf("%w: asset %q", ErrMissingAssetURL, a.ID)
		}
		var err error
		if a.PNGURL, err = resolveAssetURL(base, a.PNGURL); err != nil {
			return nil, fmt.Errorf("asset %q: %w", a.ID, err)
		}
		if a.StickerURL, err = resolveAssetURL(base, a.StickerURL); err != nil {
			return nil, fmt.Errorf("asset %q: %w", a.ID, err)
		}
		if _, ok := c.bySlug[a.Slug]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSlugInCatalog, a.Slug)
		}
		for j, tag := range a.Tags {
			a.Tags[j] = vocab.Normalize(tag)
		}
		if len(a.Tags) == 0 {
			a.Tags = []string{TagOthers}
		}
		c.bySlug[a.Slug] = i
		c.byID[a.ID] = i
	}
	return c, nil
}

func resolveAssetURL(base *url.URL, raw string) (string, error) {
	if raw == "" || base == nil {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid asset URL %q: %w", raw, err)
	}
	if u.IsAbs() {
		return raw, nil
	}
	return base.ResolveReference(u).String(), nil
}

// DecodeCatalog reads a catalog document, recording its checksum so later loads can
// detect whether anything actually changed.
func DecodeCatalog(r io.Reader, vocab *Vocabulary, opts ...CatalogOption) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var assets []Asset
	if err := json.Unmarshal(raw, &assets); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	c, err := NewCatalog(assets, vocab, opts...)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(raw)
	c.checksum = hex.EncodeToString(sum[:])
	return c, nil
}

// LoadCatalog reads a catalog document from a file.
func LoadCatalog(path string, vocab *Vocabulary, opts ...CatalogOption) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return DecodeCatalog(f, vocab, opts...)
}

// Assets returns the catalog entries in document order. The returned slice is shared
// with the snapshot and must be treated as read-only.
func (c *Catalog) Assets() []Asset {
	return c.assets
}

func (c *Catalog) Len() int {
	return len(c.assets)
}

// Checksum returns the hex digest of the source document, or "" for catalogs built
// directly from assets.
func (c *Catalog) Checksum() string {
	return c.checksum
}

// LoadedAt returns when this snapshot was built.
func (c *Catalog) LoadedAt() time.Time {
	return c.loadedAt
}

// BySlug looks up an asset by its URL slug.
func (c *Catalog) BySlug(slug string) (*Asset, bool) {
	if i, ok := c.bySlug[slug]; ok {
		return &c.assets[i], true
	}
	return nil, false
}

// ByID looks up an asset by its catalog ID.
func (c *Catalog) ByID(id string) (*Asset, bool) {
	if i, ok := c.byID[id]; ok {
		return &c.assets[i], true
	}
	return nil, false
}

// TagCounts returns how many assets carry each tag, catalog-wide.
func (c *Catalog) TagCounts() map[string]int {
	counts := make(map[string]int)
	for i := range c.assets {
		for _, tag := range c.assets[i].Tags {
			counts[tag]++
		}
	}
	return counts
}

// Related returns up to five tags most frequently co-occurring with the focal tag,
// excluding the focal tag itself and the catch-all tag. Ties break by first appearance
// in catalog order.
func (c *Catalog) Related(tag string) []string {
	counts := make(map[string]int)
	var firstSeen []string
	for i := range c.assets {
		a := &c.assets[i]
		if !a.HasTag(tag) {
			continue
		}
		for _, other := range a.Tags {
			if other == tag || other == TagOthers {
				continue
			}
			if _, seen := counts[other]; !seen {
				firstSeen = append(firstSeen, other)
			}
			counts[other]++
		}
	}
	// firstSeen is already in catalog order, so a stable sort by count keeps the
	// first-seen tag ahead on ties.
	related := append([]string(nil), firstSeen...)
	sort.SliceStable(related, func(i, j int) bool {
		return counts[related[i]] > counts[related[j]]
	})
	if len(related) > 5 {
		related = related[:5]
	}
	return related
}
