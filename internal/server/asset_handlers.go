package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pngnest/pngnest"
	"github.com/pngnest/pngnest/internal/gallery"
)

type AssetView struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Caption     string   `json:"caption"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags"`
	Author      string   `json:"author,omitempty"`
	Username    string   `json:"username,omitempty"`
	OriginalURL string   `json:"original_url,omitempty"`
	PNGURL      string   `json:"png_url"`
	StickerURL  string   `json:"sticker_url,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

func assetView(a *pngnest.Asset) AssetView {
	return AssetView{
		ID:          a.ID,
		Slug:        a.Slug,
		Caption:     a.Caption,
		Description: a.Description,
		Tags:        a.Tags,
		Author:      a.Author,
		Username:    a.Username,
		OriginalURL: a.OriginalURL,
		PNGURL:      a.PNGURL,
		StickerURL:  a.StickerURL,
		CreatedAt:   a.CreatedAt,
	}
}

func assetViews(assets []pngnest.Asset) []AssetView {
	views := make([]AssetView, 0, len(assets))
	for i := range assets {
		views = append(views, assetView(&assets[i]))
	}
	return views
}

func metaFor(w *gallery.Window) *Meta {
	return &Meta{
		Total:     w.Total(),
		PageSize:  w.PageSize(),
		Pages:     w.Pages(),
		Exhausted: w.Exhausted(),
	}
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

type ListAssetsRequest struct {
	Search string `query:"search"`
	Tags   string `query:"tags"`
	Pages  int    `query:"pages" validate:"omitempty,gte=1,lte=100"`
	Sort   string `query:"sort" validate:"omitempty,oneof=catalog newest"`
}

func (s *Server) ListAssets(ctx echo.Context) error {
	var req = ListAssetsRequest{Pages: 1}
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, Res{Error: err.Error()})
	}

	var opts []gallery.WindowOption
	if req.Sort == "newest" {
		opts = append(opts, gallery.WithNewestFirst())
	}
	w := gallery.NewWindow(s.snapshot(), opts...)
	if req.Search != "" {
		w.SetSearch(req.Search)
	}
	if tags := splitTags(req.Tags); len(tags) > 0 {
		w.SetTags(tags)
	}
	if req.Pages > 1 {
		w.GrowTo(req.Pages)
	}

	return ctx.JSON(http.StatusOK, Res{Data: assetViews(w.Visible()), Meta: metaFor(w)})
}

func (s *Server) GetAsset(ctx echo.Context) error {
	asset, ok := s.snapshot().BySlug(ctx.Param("slug"))
	if !ok {
		return ctx.JSON(http.StatusNotFound, Res{Error: "asset not found"})
	}
	return ctx.JSON(http.StatusOK, Res{Data: assetView(asset)})
}

type BrowseView struct {
	Kind   string      `json:"kind"`
	Tag    *TagView    `json:"tag,omitempty"`
	Asset  *AssetView  `json:"asset,omitempty"`
	Assets []AssetView `json:"assets,omitempty"`
}

// Browse resolves a gallery path the way the page router does: tag slugs win
// over asset slugs, anything unknown lands on the default listing.
func (s *Server) Browse(ctx echo.Context) error {
	snapshot := s.snapshot()
	segment := ctx.Param("slug")
	if segment == "" {
		w := gallery.NewWindow(snapshot)
		return ctx.JSON(http.StatusOK, Res{
			Data: BrowseView{Kind: "listing", Assets: assetViews(w.Visible())},
			Meta: metaFor(w),
		})
	}
	route := s.router.Resolve(snapshot, segment)
	switch route.Kind {
	case pngnest.RouteTag:
		view := s.tagView(snapshot, route.Tag, true)
		return ctx.JSON(http.StatusOK, Res{Data: BrowseView{Kind: "tag", Tag: &view}})
	case pngnest.RouteAsset:
		view := assetView(route.Asset)
		return ctx.JSON(http.StatusOK, Res{Data: BrowseView{Kind: "asset", Asset: &view}})
	default:
		return ctx.Redirect(http.StatusFound, "/")
	}
}

type ProviderRef struct {
	ProviderID string     `json:"provider_id"`
	Slug       string     `json:"slug"`
	Asset      *AssetView `json:"asset,omitempty"`
}

// LookupProvider finds the catalog asset behind a provider photo ID. The path
// segment may be a bare ID or any raw string the resolver understands.
func (s *Server) LookupProvider(ctx echo.Context) error {
	raw := ctx.Param("id")
	id := raw
	if resolved, ok := pngnest.DefaultResolver.Resolve(raw); ok {
		id = resolved
	}
	if s.index == nil {
		return ctx.JSON(http.StatusNotFound, Res{Error: "provider index not available"})
	}
	slug, ok, err := s.index.Lookup(id)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, Res{Error: err.Error()})
	}
	if !ok {
		return ctx.JSON(http.StatusNotFound, Res{Error: "unknown provider ID"})
	}
	ref := ProviderRef{ProviderID: id, Slug: slug}
	if asset, ok := s.snapshot().BySlug(slug); ok {
		view := assetView(asset)
		ref.Asset = &view
	}
	return ctx.JSON(http.StatusOK, Res{Data: ref})
}
