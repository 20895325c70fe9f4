package server

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"

	"github.com/pngnest/pngnest/internal/pubsub"
	"github.com/pngnest/pngnest/internal/session"
)

// eventBufSize bounds how far a slow websocket client may fall behind before
// its subscription is dropped.
const eventBufSize = 64

type EventPayload struct {
	Type       string        `json:"type"`
	DeliveryID string        `json:"delivery_id,omitempty"`
	State      *DeliveryView `json:"state,omitempty"`
	Path       string        `json:"path,omitempty"`
	Error      string        `json:"error,omitempty"`
	Checksum   string        `json:"checksum,omitempty"`
	Assets     int           `json:"assets,omitempty"`
}

func eventPayload(e session.Event) (EventPayload, bool) {
	payload := EventPayload{}
	if d := e.Delivery(); d != nil {
		payload.DeliveryID = string(d.ID)
	}
	switch e := e.(type) {
	case session.DeliveryAdded:
		payload.Type = "delivery_added"
	case session.DeliveryRemoved:
		payload.Type = "delivery_removed"
	case session.DeliveryStarted:
		payload.Type = "delivery_started"
	case session.DeliveryStopped:
		payload.Type = "delivery_stopped"
		if e.Err != nil {
			payload.Error = e.Err.Error()
		}
	case session.DeliveryUpdated:
		payload.Type = "delivery_updated"
		view := deliveryViewFromState(e.NewState)
		payload.State = &view
	case session.DeliveryFileComplete:
		payload.Type = "delivery_file_complete"
		payload.Path = e.Path
	case session.CatalogReloaded:
		payload.Type = "catalog_reloaded"
		payload.Checksum = e.Checksum
		payload.Assets = e.Assets
	default:
		return payload, false
	}
	return payload, true
}

type StreamEventsRequest struct {
	DeliveryID string `query:"delivery_id" validate:"omitempty,uuid"`
}

// StreamEvents upgrades to a websocket and forwards session and catalog events
// as JSON payloads, optionally narrowed to a single delivery.
func (s *Server) StreamEvents(ctx echo.Context) error {
	var req StreamEventsRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, Res{Error: err.Error()})
	}

	ch := pubsub.NewChannel[session.Event](eventBufSize)
	var sender pubsub.SenderCloser[session.Event] = ch
	if req.DeliveryID != "" {
		want := session.DeliveryID(req.DeliveryID)
		sender = pubsub.NewFilteredSender[session.Event](ch, func(e session.Event) bool {
			d := e.Delivery()
			return d != nil && d.ID == want
		})
	}
	if err := s.session.AddSubscriber(sender, true); err != nil {
		return ctx.JSON(http.StatusServiceUnavailable, Res{Error: err.Error()})
	}
	defer ch.Close()

	conn, err := websocket.Accept(ctx.Response(), ctx.Request(), &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	reqCtx := ctx.Request().Context()
	for {
		select {
		case <-reqCtx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return nil
		case e, ok := <-ch.Receive():
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "session closed")
				return nil
			}
			payload, relevant := eventPayload(e)
			if !relevant {
				continue
			}
			if err := wsjson.Write(reqCtx, conn, payload); err != nil {
				return nil
			}
		}
	}
}
