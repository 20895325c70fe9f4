package pngnest

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/pngnest/pngnest/generic"
)

var (
	ErrDuplicatePattern = errors.New("duplicate pattern name")
	ErrInvalidPattern   = errors.New("invalid pattern")
	ErrNoMatch          = errors.New("no pattern matched the input")
	ErrUnknownPattern   = errors.New("unknown pattern")
)

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

// ExtractFunc attempts to recover a provider ID from a raw input string, returning an
// error (and an empty ID) when the input is not something it can handle.
type ExtractFunc = func(string) (string, error)

// A Pattern extracts a provider ID from any input it knows how to handle.
type Pattern struct {
	Name    string
	Extract ExtractFunc
	// Priority of the pattern, lower (including negative) means matching earlier.
	Priority int16
	// LowConfidence marks last-resort patterns that can match unrelated substrings, so
	// callers can treat their matches with extra scrutiny.
	LowConfidence bool
}

func (p Pattern) WithName(name string) Pattern {
	p.Name = name
	return p
}

func (p Pattern) WithPriority(priority int16) Pattern {
	p.Priority = priority
	return p
}

// A Match is the result of a Pattern successfully extracting a provider ID.
type Match struct {
	PatternName   string
	ID            string
	LowConfidence bool
}

// A Resolver is an ordered collection of Pattern instances which can be used to recover
// provider IDs from heterogeneous inputs (bare IDs, filenames, URLs, serialized records).
type Resolver struct {
	patterns   []*Pattern
	patternMap map[string]*Pattern
}

// Add registers a Pattern with the Resolver. Pattern.Name and Pattern.Extract must be
// set, and Pattern.Name must be unique within the Resolver.
func (r *Resolver) Add(p Pattern) error {
	if r.patternMap == nil {
		r.patternMap = make(map[string]*Pattern)
	}
	if p.Name == "" || p.Extract == nil {
		return ErrInvalidPattern
	}
	if _, ok := r.patternMap[p.Name]; ok {
		return ErrDuplicatePattern
	}
	r.patternMap[p.Name] = &p
	r.patterns = append(r.patterns, r.patternMap[p.Name])
	r.sortByPriority()
	return nil
}

// Create is a shortcut for Add(Pattern{Name: ..., Extract: ...}).
func (r *Resolver) Create(name string, f ExtractFunc) error {
	return r.Add(Pattern{
		Name:    name,
		Extract: f,
	})
}

// CreatePriority is a shortcut for Add(Pattern{Name: ..., Extract: ..., Priority: ...}).
func (r *Resolver) CreatePriority(name string, f ExtractFunc, priority int16) error {
	return r.Add(Pattern{
		Name:     name,
		Extract:  f,
		Priority: priority,
	})
}

// GetPriority gets the priority of the named Pattern. If ErrUnknownPattern is returned,
// the returned priority is the default priority.
func (r *Resolver) GetPriority(name string) (int16, error) {
	if p, ok := r.patternMap[name]; ok {
		return p.Priority, nil
	} else {
		return 0, ErrUnknownPattern
	}
}

// List returns the names of registered patterns in priority order.
func (r *Resolver) List() []string {
	names := make([]string, 0, len(r.patterns))
	for _, p := range r.patterns {
		names = append(names, p.Name)
	}
	return names
}

// Match runs a string through each Pattern in priority order, returning the first
// successful extraction, or ErrNoMatch (wrapping every per-pattern failure) if nothing
// matched. An empty input short-circuits to ErrNoMatch without trying any pattern.
func (r *Resolver) Match(s string) (*Match, error) {
	if s == "" {
		return nil, ErrNoMatch
	}
	var result error
	for _, p := range r.patterns {
		if id, err := p.Extract(s); id != "" && err == nil {
			match := &Match{
				PatternName:   p.Name,
				ID:            id,
				LowConfidence: p.LowConfidence,
			}
			return match, nil
		} else {
			result = multierror.Append(result, multierror.Prefix(err, fmt.Sprintf("[%v]", p.Name)))
		}
	}
	if result == nil {
		result = ErrNoMatch
	}
	return nil, result
}

// MatchWith will attempt to match a string against a specific pattern.
func (r *Resolver) MatchWith(name string, s string) (*Match, error) {
	if p, ok := r.patternMap[name]; ok {
		if id, err := p.Extract(s); id != "" && err == nil {
			match := &Match{
				PatternName:   p.Name,
				ID:            id,
				LowConfidence: p.LowConfidence,
			}
			return match, nil
		} else {
			return nil, ErrNoMatch
		}
	} else {
		return nil, ErrUnknownPattern
	}
}

// Resolve is the non-failing form of Match: it reduces the outcome to the extracted ID
// and whether anything matched at all. It never returns an error; an input nothing can
// handle is just "unresolved".
func (r *Resolver) Resolve(raw string) (id string, ok bool) {
	if match, err := r.Match(raw); err != nil || match == nil {
		return "", false
	} else {
		return match.ID, true
	}
}

// MustAdd wraps Add but panics if there is an error.
func (r *Resolver) MustAdd(p Pattern) {
	generic.Unwrap_(r.Add(p))
}

// MustCreate wraps Create but panics if there is an error.
func (r *Resolver) MustCreate(name string, f ExtractFunc) {
	generic.Unwrap_(r.Create(name, f))
}

// MustCreatePriority wraps CreatePriority but panics if there is an error.
func (r *Resolver) MustCreatePriority(name string, f ExtractFunc, priority int16) {
	generic.Unwrap_(r.CreatePriority(name, f, priority))
}

// SetPriority adjusts the priority of a named Pattern.
func (r *Resolver) SetPriority(name string, priority int16) error {
	if p, ok := r.patternMap[name]; ok {
		p.Priority = priority
		r.sortByPriority()
		return nil
	} else {
		return ErrUnknownPattern
	}
}

func (r *Resolver) sortByPriority() {
	sort.SliceStable(r.patterns, func(i, j int) bool {
		return r.patterns[i].Priority < r.patterns[j].Priority
	})
}

var DefaultResolver Resolver
