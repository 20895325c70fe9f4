// Package unsplash implements provider-specific ID extraction and the download
// compliance notification for assets imported from Unsplash.
package unsplash

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"github.com/pngnest/pngnest"
)

// A photo ID is an 11-character token of letters, digits, "-" and "_". Inputs that are
// nothing but a near-canonical token (10-13 characters) are accepted unchanged.
const idAlphabet = `[A-Za-z0-9_-]`

var (
	reExact      = regexp.MustCompile(`^` + idAlphabet + `{10,13}$`)
	reSuffixed   = regexp.MustCompile(`[-_](` + idAlphabet + `{11})-unsplash`)
	reTail       = regexp.MustCompile(`[-_](` + idAlphabet + `{11})(?:\.[a-z]+)?$`)
	reBareSuffix = regexp.MustCompile(`(` + idAlphabet + `{11})-unsplash`)
	reHead       = regexp.MustCompile(`^(` + idAlphabet + `{11})[-_.]`)
	rePermissive = regexp.MustCompile(idAlphabet + `{11}`)
)

// Relative pattern priorities; lower matches earlier.
const (
	priorityExact      int16 = -300
	priorityRecord     int16 = -250
	prioritySuffixed   int16 = -200
	priorityTail       int16 = -150
	priorityBareSuffix int16 = -100
	priorityHead       int16 = -50
)

// MatchExact accepts inputs that already are a bare photo ID, returning them unchanged.
func MatchExact(s string) (string, error) {
	if reExact.MatchString(s) {
		return s, nil
	}
	return "", fmt.Errorf("not a bare photo ID")
}

// MatchRecord handles serialized inputs: a JSON object carrying an explicit
// "unsplash_id" field, or a JSON-quoted bare ID. Parse failures are ordinary misses,
// never propagated further.
func MatchRecord(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(trimmed, "{"):
		var record struct {
			UnsplashID string `json:"unsplash_id"`
		}
		if err := json.Unmarshal([]byte(trimmed), &record); err != nil {
			return "", fmt.Errorf("unparseable record: %w", err)
		}
		if record.UnsplashID == "" {
			return "", fmt.Errorf("record has no unsplash_id")
		}
		return record.UnsplashID, nil
	case strings.HasPrefix(trimmed, `"`):
		var quoted string
		if err := json.Unmarshal([]byte(trimmed), &quoted); err != nil {
			return "", fmt.Errorf("unparseable quoted ID: %w", err)
		}
		return MatchExact(quoted)
	default:
		return "", fmt.Errorf("not a serialized record")
	}
}

// MatchSuffixed extracts the ID from the importer's standard filename shape,
// {author}-{ID}-unsplash{.ext}.
func MatchSuffixed(s string) (string, error) {
	return firstSubmatch(reSuffixed, s)
}

// MatchTail extracts an ID sitting at the end of the input after a separator, with or
// without a file extension.
func MatchTail(s string) (string, error) {
	return firstSubmatch(reTail, s)
}

// MatchBareSuffix extracts an ID immediately preceding the "-unsplash" marker without
// requiring a separator anchor before it.
func MatchBareSuffix(s string) (string, error) {
	return firstSubmatch(reBareSuffix, s)
}

// MatchHead extracts an ID at the start of the input, delimited by a separator or
// extension dot, e.g. {ID}.jpg.
func MatchHead(s string) (string, error) {
	return firstSubmatch(reHead, s)
}

// MatchAnywhere is the permissive last resort: the first ID-shaped substring anywhere
// in the input. It can match unrelated text, so it registers as low-confidence.
func MatchAnywhere(s string) (string, error) {
	if id := rePermissive.FindString(s); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no ID-shaped substring")
}

func firstSubmatch(re *regexp.Regexp, s string) (string, error) {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("no match for %v", re)
}

// Patterns returns every extraction pattern in priority order, for registering with a
// Resolver.
func Patterns() []pngnest.Pattern {
	return []pngnest.Pattern{
		{Name: "unsplash-exact", Extract: MatchExact, Priority: priorityExact},
		{Name: "unsplash-record", Extract: MatchRecord, Priority: priorityRecord},
		{Name: "unsplash-suffixed", Extract: MatchSuffixed, Priority: prioritySuffixed},
		{Name: "unsplash-tail", Extract: MatchTail, Priority: priorityTail},
		{Name: "unsplash-bare-suffix", Extract: MatchBareSuffix, Priority: priorityBareSuffix},
		{Name: "unsplash-head", Extract: MatchHead, Priority: priorityHead},
		{Name: "unsplash-anywhere", Extract: MatchAnywhere, Priority: pngnest.PriorityLowest, LowConfidence: true},
	}
}

func init() {
	for _, p := range Patterns() {
		pngnest.DefaultResolver.MustAdd(p)
	}
}
