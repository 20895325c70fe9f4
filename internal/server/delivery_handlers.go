package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pngnest/pngnest"
	"github.com/pngnest/pngnest/internal/journal"
	"github.com/pngnest/pngnest/internal/session"
)

type DeliveryView struct {
	ID          string `json:"id"`
	AssetSlug   string `json:"asset_slug"`
	Variant     string `json:"variant"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	Status      string `json:"status"`
	Strategy    string `json:"strategy,omitempty"`
	Path        string `json:"path,omitempty"`
	Error       string `json:"error,omitempty"`
	Transferred int    `json:"transferred,omitempty"`
	Expected    int    `json:"expected,omitempty"`
	// Live marks deliveries still held by the session, as opposed to journal
	// history from earlier runs.
	Live      bool   `json:"live"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func deliveryViewFromState(state session.DeliveryState) DeliveryView {
	return DeliveryView{
		ID:          string(state.ID),
		AssetSlug:   state.AssetSlug,
		Variant:     string(state.Variant),
		URL:         state.URL,
		Filename:    state.Filename,
		Status:      string(state.Status),
		Strategy:    state.Strategy,
		Path:        state.Path,
		Error:       state.Error,
		Transferred: state.Transferred,
		Expected:    state.Expected,
		Live:        true,
		CreatedAt:   state.AddedAt.Format(time.RFC3339),
	}
}

func deliveryViewFromRecord(rec *journal.DeliveryRecord) DeliveryView {
	return DeliveryView{
		ID:        rec.ID,
		AssetSlug: rec.AssetSlug,
		Variant:   rec.Variant,
		URL:       rec.URL,
		Filename:  rec.Filename,
		Status:    string(rec.Status),
		Strategy:  rec.Strategy,
		Path:      rec.Path,
		Error:     rec.Error,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
	}
}

type NotificationView struct {
	UnsplashID   string `json:"unsplash_id"`
	Dispatched   bool   `json:"dispatched"`
	Skipped      bool   `json:"skipped"`
	StatusCode   int    `json:"status_code,omitempty"`
	Acknowledged bool   `json:"acknowledged"`
	Error        string `json:"error,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

func notificationViews(records []journal.NotificationRecord) []NotificationView {
	views := make([]NotificationView, 0, len(records))
	for i := range records {
		rec := &records[i]
		views = append(views, NotificationView{
			UnsplashID:   rec.UnsplashID,
			Dispatched:   rec.Dispatched,
			Skipped:      rec.Skipped,
			StatusCode:   rec.StatusCode,
			Acknowledged: rec.Acknowledged(),
			Error:        rec.Error,
			CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
		})
	}
	return views
}

type DeliveryDetail struct {
	DeliveryView
	Notifications []NotificationView `json:"notifications,omitempty"`
}

type CreateDeliveryRequest struct {
	Variant  string `json:"variant" validate:"omitempty,oneof=png sticker"`
	Filename string `json:"filename"`
}

// CreateDelivery starts delivering an asset and answers 202 with the delivery's
// state; progress is observable via /api/deliveries/:id and /api/events.
func (s *Server) CreateDelivery(ctx echo.Context) error {
	var req CreateDeliveryRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, Res{Error: err.Error()})
	}
	asset, ok := s.snapshot().BySlug(ctx.Param("slug"))
	if !ok {
		return ctx.JSON(http.StatusNotFound, Res{Error: "asset not found"})
	}
	d, err := s.session.AddDelivery(asset, session.AddDeliveryOptions{
		Variant:  pngnest.Variant(req.Variant),
		Filename: req.Filename,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, Res{Error: err.Error()})
	}
	d.Start()
	state, err := d.State()
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, Res{Error: err.Error()})
	}
	return ctx.JSON(http.StatusAccepted, Res{Data: deliveryViewFromState(state)})
}

type ListDeliveriesRequest struct {
	Asset string `query:"asset"`
	Limit int    `query:"limit" validate:"omitempty,gte=1,lte=500"`
}

func (s *Server) ListDeliveries(ctx echo.Context) error {
	var req = ListDeliveriesRequest{Limit: 50}
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, Res{Error: err.Error()})
	}

	if s.journal == nil {
		// No history, just the live session.
		var views []DeliveryView
		for _, d := range s.session.ListDeliveries() {
			state, err := d.State()
			if err != nil {
				continue
			}
			if req.Asset != "" && state.AssetSlug != req.Asset {
				continue
			}
			views = append(views, deliveryViewFromState(state))
		}
		return ctx.JSON(http.StatusOK, Res{Data: views})
	}

	var (
		records []journal.DeliveryRecord
		err     error
	)
	if req.Asset != "" {
		records, err = s.journal.DeliveriesForAsset(req.Asset)
	} else {
		records, err = s.journal.ListDeliveries(req.Limit)
	}
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, Res{Error: err.Error()})
	}
	views := make([]DeliveryView, 0, len(records))
	for i := range records {
		view := deliveryViewFromRecord(&records[i])
		view.Live = s.session.GetDelivery(session.DeliveryID(view.ID)) != nil
		views = append(views, view)
	}
	return ctx.JSON(http.StatusOK, Res{Data: views})
}

func (s *Server) GetDelivery(ctx echo.Context) error {
	id := ctx.Param("id")
	detail := DeliveryDetail{}
	if d := s.session.GetDelivery(session.DeliveryID(id)); d != nil {
		if state, err := d.State(); err == nil {
			detail.DeliveryView = deliveryViewFromState(state)
		}
	}
	if detail.ID == "" {
		if s.journal == nil {
			return ctx.JSON(http.StatusNotFound, Res{Error: "delivery not found"})
		}
		rec, err := s.journal.GetDelivery(id)
		if err != nil {
			return ctx.JSON(http.StatusInternalServerError, Res{Error: err.Error()})
		}
		if rec == nil {
			return ctx.JSON(http.StatusNotFound, Res{Error: "delivery not found"})
		}
		detail.DeliveryView = deliveryViewFromRecord(rec)
	}
	if s.journal != nil {
		notifications, err := s.journal.NotificationsForDelivery(id)
		if err == nil {
			detail.Notifications = notificationViews(notifications)
		}
	}
	return ctx.JSON(http.StatusOK, Res{Data: detail})
}
