package pngnest

import (
	"time"

	"go.uber.org/zap"

	"github.com/pngnest/pngnest/internal/cache"
)

// RouteKind classifies what a gallery path segment refers to.
type RouteKind string

const (
	RouteTag     RouteKind = "tag"
	RouteAsset   RouteKind = "asset"
	RouteDefault RouteKind = "default"
)

// A Route is a resolved path segment: a tag listing, a single asset, or the
// default listing for anything unknown.
type Route struct {
	Kind  RouteKind
	Tag   string
	Asset *Asset
}

// A Router maps between tags and route slugs and classifies incoming path
// segments against a catalog snapshot. Related-tag lookups are memoized per
// catalog checksum, so a reloaded catalog never serves stale results.
type Router struct {
	vocab   *Vocabulary
	related *cache.Cache[[]string]
	ttl     time.Duration
	log     *zap.SugaredLogger
}

type RouterOption func(*Router)

// WithRelatedTTL bounds how long a memoized related-tags entry may live.
func WithRelatedTTL(ttl time.Duration) RouterOption {
	return func(r *Router) {
		r.ttl = ttl
	}
}

func NewRouter(vocab *Vocabulary, opts ...RouterOption) *Router {
	if vocab == nil {
		vocab = DefaultVocabulary
	}
	r := &Router{
		vocab:   vocab,
		related: cache.New[[]string]("related-tags", cache.DefaultExpiration, cache.DefaultCleanupInterval),
		ttl:     cache.DefaultExpiration,
		log:     zap.S().Named("router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RouteFor returns the listing slug for a tag. A tag outside the vocabulary
// routes to its own slugified form, which is worth a warning but never an error.
func (r *Router) RouteFor(tag string) string {
	slug, ok := r.vocab.RouteFor(tag)
	if !ok {
		r.log.Warnw("tag has no route, using the tag itself", "tag", tag, "slug", slug)
	}
	return slug
}

// TagFor returns the tag a route slug stands for.
func (r *Router) TagFor(slug string) (string, bool) {
	return r.vocab.TagFor(slug)
}

// Resolve classifies a path segment. Tag routes win over asset slugs; anything
// unrecognized routes to the default listing.
func (r *Router) Resolve(catalog *Catalog, segment string) Route {
	if tag, ok := r.vocab.TagFor(segment); ok {
		return Route{Kind: RouteTag, Tag: tag}
	}
	if asset, ok := catalog.BySlug(segment); ok {
		return Route{Kind: RouteAsset, Asset: asset}
	}
	return Route{Kind: RouteDefault}
}

// Related returns the focal tag's top co-occurring tags, memoized per catalog
// checksum. Catalogs without a checksum (built in memory rather than decoded)
// are computed directly every time.
func (r *Router) Related(catalog *Catalog, tag string) []string {
	checksum := catalog.Checksum()
	if checksum == "" {
		return catalog.Related(tag)
	}
	return r.related.GetOrCompute(checksum+":"+tag, r.ttl, func() []string {
		return catalog.Related(tag)
	})
}

// Vocabulary exposes the router's tag vocabulary.
func (r *Router) Vocabulary() *Vocabulary {
	return r.vocab
}
