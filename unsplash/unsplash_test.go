package unsplash

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/pngnest/pngnest"
)

func TestMatchExact(t *testing.T) {
	assert := assert_.New(t)

	// Bare IDs come back unchanged, including near-canonical lengths.
	for _, id := range []string{"V09Io5ln-Qo", "h7Dw2hF4e0A", "abcde_1234", "abcdefghijklm"} {
		got, err := MatchExact(id)
		assert.Nil(err)
		assert.Equal(id, got)
	}

	for _, s := range []string{"", "short", "way-too-long-for-an-id", "V09Io5ln-Qo.jpg"} {
		_, err := MatchExact(s)
		assert.NotNil(err, "%q should not look like a bare ID", s)
	}
}

func TestMatchRecord(t *testing.T) {
	assert := assert_.New(t)

	id, err := MatchRecord(`{"unsplash_id": "V09Io5ln-Qo", "username": "aaronhuber"}`)
	assert.Nil(err)
	assert.Equal("V09Io5ln-Qo", id)

	id, err = MatchRecord(`"h7Dw2hF4e0A"`)
	assert.Nil(err)
	assert.Equal("h7Dw2hF4e0A", id)

	_, err = MatchRecord(`{"username": "aaronhuber"}`)
	assert.NotNil(err)
	_, err = MatchRecord(`{"unsplash_id": `)
	assert.NotNil(err)
	_, err = MatchRecord(`plain text`)
	assert.NotNil(err)
}

func TestMatchFilenames(t *testing.T) {
	assert := assert_.New(t)

	// The importer's standard shape, {author}-{ID}-unsplash{.ext}.
	id, err := MatchSuffixed("aaron-huber-V09Io5ln-Qo-unsplash.jpg")
	assert.Nil(err)
	assert.Equal("V09Io5ln-Qo", id)
	id, err = MatchSuffixed("ayako-h7Dw2hF4e0A-unsplash")
	assert.Nil(err)
	assert.Equal("h7Dw2hF4e0A", id)

	// Renamed exports keep the ID at the tail.
	id, err = MatchTail("test_V09Io5ln-Qo.jpg")
	assert.Nil(err)
	assert.Equal("V09Io5ln-Qo", id)
	id, err = MatchTail("crop-h7Dw2hF4e0A")
	assert.Nil(err)
	assert.Equal("h7Dw2hF4e0A", id)

	// Marker without a separator anchor.
	id, err = MatchBareSuffix("h7Dw2hF4e0A-unsplash")
	assert.Nil(err)
	assert.Equal("h7Dw2hF4e0A", id)

	// ID leading the filename.
	id, err = MatchHead("V09Io5ln-Qo.jpg")
	assert.Nil(err)
	assert.Equal("V09Io5ln-Qo", id)
	id, err = MatchHead("V09Io5ln-Qo_large")
	assert.Nil(err)
	assert.Equal("V09Io5ln-Qo", id)

	_, err = MatchSuffixed("plain-photo.jpg")
	assert.NotNil(err)
	_, err = MatchHead("photo.jpg")
	assert.NotNil(err)
}

func TestMatchAnywhere(t *testing.T) {
	assert := assert_.New(t)

	id, err := MatchAnywhere("photo copy V09Io5ln-Qo final")
	assert.Nil(err)
	assert.Equal("V09Io5ln-Qo", id)

	_, err = MatchAnywhere("my vacation photo august")
	assert.NotNil(err)
}

func TestDefaultResolverPrecedence(t *testing.T) {
	assert := assert_.New(t)

	// The suffixed pattern must win before the tail pattern gets a chance to
	// capture "Qo-unsplash" out of the same filename.
	match, err := pngnest.DefaultResolver.Match("aaron-huber-V09Io5ln-Qo-unsplash.jpg")
	assert.Nil(err)
	assert.Equal("unsplash-suffixed", match.PatternName)
	assert.Equal("V09Io5ln-Qo", match.ID)
	assert.False(match.LowConfidence)

	// A bare ID short-circuits everything else, unchanged.
	match, err = pngnest.DefaultResolver.Match("V09Io5ln-Qo")
	assert.Nil(err)
	assert.Equal("unsplash-exact", match.PatternName)
	assert.Equal("V09Io5ln-Qo", match.ID)

	match, err = pngnest.DefaultResolver.Match(`{"unsplash_id": "h7Dw2hF4e0A"}`)
	assert.Nil(err)
	assert.Equal("unsplash-record", match.PatternName)
	assert.Equal("h7Dw2hF4e0A", match.ID)

	// The permissive scan only ever runs last, and says so.
	match, err = pngnest.DefaultResolver.Match("photo copy V09Io5ln-Qo final")
	assert.Nil(err)
	assert.Equal("unsplash-anywhere", match.PatternName)
	assert.True(match.LowConfidence)
}

func TestDefaultResolverUnresolved(t *testing.T) {
	assert := assert_.New(t)

	// Inputs with nothing ID-shaped resolve to nothing, never an error.
	for _, s := range []string{"", "my vacation photo august", "{'broken json'}"} {
		id, ok := pngnest.DefaultResolver.Resolve(s)
		assert.False(ok, "%q should not resolve", s)
		assert.Equal("", id)
	}
}
