package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pngnest/pngnest"
)

type TagView struct {
	Tag     string   `json:"tag"`
	Slug    string   `json:"slug"`
	Count   int      `json:"count"`
	Related []string `json:"related,omitempty"`
}

func (s *Server) tagView(snapshot *pngnest.Catalog, tag string, withRelated bool) TagView {
	view := TagView{
		Tag:   tag,
		Slug:  s.router.RouteFor(tag),
		Count: snapshot.TagCounts()[tag],
	}
	if withRelated {
		view.Related = s.router.Related(snapshot, tag)
	}
	return view
}

func (s *Server) ListTags(ctx echo.Context) error {
	snapshot := s.snapshot()
	counts := snapshot.TagCounts()
	entries := s.router.Vocabulary().Entries()
	views := make([]TagView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, TagView{
			Tag:   entry.Tag,
			Slug:  entry.Slug,
			Count: counts[entry.Tag],
		})
	}
	return ctx.JSON(http.StatusOK, Res{Data: views})
}

// GetTag resolves a tag from its route slug. Unknown slugs redirect to the
// default listing rather than failing.
func (s *Server) GetTag(ctx echo.Context) error {
	slug := ctx.Param("slug")
	tag, ok := s.router.TagFor(slug)
	if !ok {
		return ctx.Redirect(http.StatusFound, "/")
	}
	return ctx.JSON(http.StatusOK, Res{Data: s.tagView(s.snapshot(), tag, true)})
}
