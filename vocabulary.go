package pngnest

import (
	"errors"
	"fmt"

	"github.com/pngnest/pngnest/generic"
	"github.com/pngnest/pngnest/util"
)

// TagOthers is the catch-all tag applied to assets the classifier could not place; it is
// part of the vocabulary (it has a listing page) but is excluded from related-tag
// suggestions.
const TagOthers = "others"

var (
	ErrDuplicateTag  = errors.New("duplicate tag in vocabulary")
	ErrDuplicateSlug = errors.New("duplicate route slug in vocabulary")
)

// A TagRoute pairs a canonical tag with its stable route slug.
type TagRoute struct {
	Tag  string
	Slug string
}

// A Vocabulary is the fixed tag taxonomy: every canonical tag in display order, an
// injective tag → route-slug mapping, and the derived inverse. It is static
// configuration, never mutated at runtime.
type Vocabulary struct {
	entries []TagRoute
	slugs   map[string]string // tag -> route slug
	tags    map[string]string // route slug -> tag
	aliases map[string]string // legacy tag form -> canonical tag
}

// NewVocabulary builds a Vocabulary from tag/slug pairs, rejecting anything that would
// make either direction of the mapping ambiguous.
func NewVocabulary(entries ...TagRoute) (*Vocabulary, error) {
	v := &Vocabulary{
		entries: entries,
		slugs:   make(map[string]string, len(entries)),
		tags:    make(map[string]string, len(entries)),
		aliases: make(map[string]string),
	}
	for _, e := range entries {
		if _, ok := v.slugs[e.Tag]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTag, e.Tag)
		}
		if _, ok := v.tags[e.Slug]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSlug, e.Slug)
		}
		v.slugs[e.Tag] = e.Slug
		v.tags[e.Slug] = e.Tag
	}
	return v, nil
}

// WithAliases registers legacy tag spellings that normalize to a canonical tag, e.g.
// pluralized forms left over from older catalog builds.
func (v *Vocabulary) WithAliases(aliases map[string]string) *Vocabulary {
	for from, to := range aliases {
		v.aliases[from] = to
	}
	return v
}

// Tags returns every canonical tag in display order.
func (v *Vocabulary) Tags() []string {
	tags := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		tags = append(tags, e.Tag)
	}
	return tags
}

// Entries returns the tag/slug pairs in display order.
func (v *Vocabulary) Entries() []TagRoute {
	entries := make([]TagRoute, len(v.entries))
	copy(entries, v.entries)
	return entries
}

// Contains reports whether tag is a canonical vocabulary tag.
func (v *Vocabulary) Contains(tag string) bool {
	_, ok := v.slugs[tag]
	return ok
}

// Normalize maps legacy tag spellings onto their canonical form; tags without an alias
// pass through unchanged.
func (v *Vocabulary) Normalize(tag string) string {
	if canonical, ok := v.aliases[tag]; ok {
		return canonical
	}
	return tag
}

// RouteFor returns the route slug for a tag. An unmapped tag falls back to a slugified
// form of the tag itself, reported by ok=false so the caller can log the inconsistency
// instead of failing.
func (v *Vocabulary) RouteFor(tag string) (slug string, ok bool) {
	tag = v.Normalize(tag)
	if slug, ok = v.slugs[tag]; ok {
		return slug, true
	}
	return util.Slugify(tag), false
}

// TagFor returns the canonical tag for a route slug; ok=false means the slug is not part
// of the vocabulary and the caller should fall back to the default listing.
func (v *Vocabulary) TagFor(slug string) (tag string, ok bool) {
	tag, ok = v.tags[slug]
	return tag, ok
}

// DefaultVocabulary is the taxonomy the gallery serves: the "clipart" listing family
// plus the "png" listing family, in the display order the catalog build uses.
var DefaultVocabulary = generic.Unwrap(NewVocabulary(
	TagRoute{Tag: "christmas", Slug: "christmas-clipart"},
	TagRoute{Tag: "flower", Slug: "flower-clipart"},
	TagRoute{Tag: "book", Slug: "book-clipart"},
	TagRoute{Tag: "christmas tree", Slug: "christmas-tree-clipart"},
	TagRoute{Tag: "dog", Slug: "dog-clipart"},
	TagRoute{Tag: "car", Slug: "car-clipart"},
	TagRoute{Tag: "cat", Slug: "cat-clipart"},
	TagRoute{Tag: "pumpkin", Slug: "pumpkin-clipart"},
	TagRoute{Tag: "apple", Slug: "apple-clipart"},
	TagRoute{Tag: "airplane", Slug: "airplane-clipart"},
	TagRoute{Tag: "birthday", Slug: "birthday-clipart"},
	TagRoute{Tag: "santa hat", Slug: "santa-hat-png"},
	TagRoute{Tag: "crown", Slug: "crown-png"},
	TagRoute{Tag: "gun", Slug: "gun-png"},
	TagRoute{Tag: "baby", Slug: "baby-clipart"},
	TagRoute{Tag: "camera", Slug: "camera-clipart"},
	TagRoute{Tag: "money", Slug: "money-png"},
	TagRoute{Tag: TagOthers, Slug: "others-png"},
)).WithAliases(map[string]string{
	"books":   "book",
	"flowers": "flower",
})
