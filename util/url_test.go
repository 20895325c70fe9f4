package util

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestFilenameFromURLString(t *testing.T) {
	assert := assert_.New(t)

	filename, err := FilenameFromURLString("https://example.com/images/photo.png")
	assert.Nil(err)
	assert.Equal("photo.png", filename)

	filename, err = FilenameFromURLString("https://example.com/images/photo.png?width=640")
	assert.Nil(err)
	assert.Equal("photo.png", filename)

	_, err = FilenameFromURLString("https://example.com/")
	assert.ErrorIs(err, ErrNoFilename)

	_, err = FilenameFromURLString("https://example.com/images/..")
	assert.ErrorIs(err, ErrNoFilename)
}

func TestSlugify(t *testing.T) {
	assert := assert_.New(t)

	assert.Equal("brown-dog-wearing-red-glasses", Slugify("Brown Dog wearing Red Glasses"))
	assert.Equal("christmas-tree", Slugify("christmas tree"))
	assert.Equal("a-b-c", Slugify("  a__b--c!  "))
	assert.Equal("caf-24-7", Slugify("Café 24/7"))
	assert.Equal("", Slugify("!!!"))
}
