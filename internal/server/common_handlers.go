package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthView struct {
	Status          string `json:"status"`
	Assets          int    `json:"assets"`
	CatalogChecksum string `json:"catalog_checksum,omitempty"`
	CatalogLoadedAt string `json:"catalog_loaded_at,omitempty"`
	// Deliveries tracked by the live session, settled ones included until removed.
	Deliveries int `json:"deliveries"`
}

func (s *Server) healthHandler(ctx echo.Context) error {
	snapshot := s.snapshot()
	view := HealthView{
		Status:          "ok",
		Assets:          snapshot.Len(),
		CatalogChecksum: snapshot.Checksum(),
		Deliveries:      len(s.session.ListDeliveries()),
	}
	if loadedAt := snapshot.LoadedAt(); !loadedAt.IsZero() {
		view.CatalogLoadedAt = loadedAt.Format(time.RFC3339)
	}
	return ctx.JSON(http.StatusOK, Res{Data: view})
}
