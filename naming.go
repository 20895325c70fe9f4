package pngnest

import (
	"path"
	"strings"
	"text/template"

	"github.com/pngnest/pngnest/util"
)

// A FilenameConfig decides the local filename for a delivered asset.
type FilenameConfig interface {
	Filename(asset *Asset, variant Variant) (string, error)
}

type filenameConfig struct {
	tmpl *template.Template
}

// DefaultFilenameTemplate names downloads after the asset caption, marking the bordered
// variant and keeping the extension of the source URL.
const DefaultFilenameTemplate = `{{.Base}}{{if .Sticker}}-sticker{{end}}.{{.Ext}}`

func NewFilenameConfig() FilenameConfig {
	return &filenameConfig{
		tmpl: template.Must(template.New("filename").Parse(DefaultFilenameTemplate)),
	}
}

// NewFilenameConfigTemplate builds a FilenameConfig from a custom template over the
// same arguments as DefaultFilenameTemplate.
func NewFilenameConfigTemplate(tmpl string) (FilenameConfig, error) {
	parsed, err := template.New("filename").Parse(tmpl)
	if err != nil {
		return nil, err
	}
	return &filenameConfig{tmpl: parsed}, nil
}

func (c *filenameConfig) Filename(asset *Asset, variant Variant) (string, error) {
	args := filenameArgs{
		Asset:   asset,
		Variant: variant,
	}
	builder := strings.Builder{}
	if err := c.tmpl.Execute(&builder, &args); err != nil {
		return "", err
	}
	return builder.String(), nil
}

type filenameArgs struct {
	Asset   *Asset
	Variant Variant
}

// Base is the filename stem: the slugified caption, or the asset slug when the caption
// slugifies to nothing.
func (a *filenameArgs) Base() string {
	if base := util.Slugify(a.Asset.Caption); base != "" {
		return base
	}
	return a.Asset.Slug
}

func (a *filenameArgs) Sticker() bool {
	return a.Variant == VariantSticker
}

// Ext is the extension of the variant's source URL, defaulting to png.
func (a *filenameArgs) Ext() string {
	url, err := a.Asset.URL(a.Variant)
	if err != nil {
		return "png"
	}
	filename, err := util.FilenameFromURLString(url)
	if err != nil {
		return "png"
	}
	if ext := strings.TrimPrefix(path.Ext(filename), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return "png"
}
