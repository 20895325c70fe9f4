// Package gallery implements the windowed, filtered view over a catalog snapshot
// that backs the asset listing.
package gallery

import (
	"slices"
	"sort"
	"strings"

	"github.com/pngnest/pngnest"
)

const DefaultPageSize = 24

// A Window is a monotonic view over the filtered catalog: it only ever grows,
// except when a filter change resets it to the first page. It is not safe for
// concurrent use; each consumer owns its own window over an immutable snapshot.
type Window struct {
	catalog     *pngnest.Catalog
	filtered    []pngnest.Asset
	search      string
	tags        []string
	pageSize    int
	pages       int
	newestFirst bool
}

type WindowOption func(*Window)

func WithPageSize(n int) WindowOption {
	return func(w *Window) {
		if n > 0 {
			w.pageSize = n
		}
	}
}

// WithNewestFirst orders the filtered assets by creation time, newest first.
func WithNewestFirst() WindowOption {
	return func(w *Window) {
		w.newestFirst = true
	}
}

func NewWindow(catalog *pngnest.Catalog, opts ...WindowOption) *Window {
	w := &Window{
		catalog:  catalog,
		pageSize: DefaultPageSize,
		pages:    1,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.refilter()
	return w
}

// SetSearch filters by case-insensitive caption substring. Changing the query
// resets the window to the first page; setting the same query again does not.
func (w *Window) SetSearch(query string) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == w.search {
		return
	}
	w.search = query
	w.reset()
}

// SetTags keeps only assets sharing at least one of the given tags. An empty
// filter keeps everything. Changing the filter resets the window to the first
// page.
func (w *Window) SetTags(tags []string) {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			normalized = append(normalized, tag)
		}
	}
	if slices.Equal(normalized, w.tags) {
		return
	}
	w.tags = normalized
	w.reset()
}

func (w *Window) Search() string {
	return w.search
}

func (w *Window) Tags() []string {
	return w.tags
}

// Grow opens the next page, reporting whether the window actually grew.
func (w *Window) Grow() bool {
	if w.Exhausted() {
		return false
	}
	w.pages++
	return true
}

// GrowTo opens pages until n are visible, stopping early once the filtered set is
// covered.
func (w *Window) GrowTo(pages int) {
	for w.pages < pages && w.Grow() {
	}
}

// Visible returns the currently open window of the filtered assets.
func (w *Window) Visible() []pngnest.Asset {
	n := w.pages * w.pageSize
	if n > len(w.filtered) {
		n = len(w.filtered)
	}
	return w.filtered[:n]
}

// Exhausted reports whether the window already covers the whole filtered set.
func (w *Window) Exhausted() bool {
	return w.pages*w.pageSize >= len(w.filtered)
}

// Total is the size of the filtered set, visible or not.
func (w *Window) Total() int {
	return len(w.filtered)
}

func (w *Window) Pages() int {
	return w.pages
}

func (w *Window) PageSize() int {
	return w.pageSize
}

// PageCount is how many pages the whole filtered set spans.
func (w *Window) PageCount() int {
	return (len(w.filtered) + w.pageSize - 1) / w.pageSize
}

func (w *Window) reset() {
	w.pages = 1
	w.refilter()
}

func (w *Window) refilter() {
	filtered := make([]pngnest.Asset, 0, w.catalog.Len())
	for _, asset := range w.catalog.Assets() {
		if w.matches(&asset) {
			filtered = append(filtered, asset)
		}
	}
	if w.newestFirst {
		// Zero (missing or unparseable) timestamps sort last.
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Created().After(filtered[j].Created())
		})
	}
	w.filtered = filtered
}

func (w *Window) matches(asset *pngnest.Asset) bool {
	if w.search != "" && !strings.Contains(strings.ToLower(asset.Caption), w.search) {
		return false
	}
	if len(w.tags) == 0 {
		return true
	}
	for _, tag := range w.tags {
		if asset.HasTag(tag) {
			return true
		}
	}
	return false
}
