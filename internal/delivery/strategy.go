package delivery

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/pngnest/pngnest/util"
)

// Strategy names, in default chain order.
const (
	StrategyDirectLink   = "direct-link"
	StrategyFetchBlob    = "fetch-and-blob"
	StrategyCanvasRedraw = "canvas-redraw"
	StrategyNewTab       = "new-tab"
)

// A Strategy is one way of getting the delivery's URL to the user. Each strategy
// runs at most once per delivery and reports failure by returning an error.
type Strategy interface {
	Name() string
	Deliver(d Delivery) error
}

// DefaultStrategies is the standard chain: optimistic direct save, then an explicit
// fetch, then a decode/re-encode of the image, then the unconditional URL handoff.
func DefaultStrategies() []Strategy {
	return []Strategy{
		DirectLink{},
		FetchBlob{},
		CanvasRedraw{},
		NewTab{},
	}
}

// DirectLink asks the sink to save the URL as-is. It is optimistic: it only fails
// if the sink fails synchronously.
type DirectLink struct{}

func (DirectLink) Name() string {
	return StrategyDirectLink
}

func (DirectLink) Deliver(d Delivery) error {
	savedPath, err := d.Sink().SaveLink(d.Context(), d.Filename(), d.URL())
	if err != nil {
		return err
	}
	d.SetSavedPath(savedPath)
	return nil
}

// FetchBlob fetches the URL itself and hands the bytes to the sink. A non-2xx
// response fails fast without reading the body.
type FetchBlob struct {
	// Origin is sent as the Origin header when set, mimicking a cross-origin
	// fetch from the gallery page.
	Origin string
}

func (FetchBlob) Name() string {
	return StrategyFetchBlob
}

func (s FetchBlob) Deliver(d Delivery) error {
	req, err := http.NewRequestWithContext(d.Context(), http.MethodGet, d.URL(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if s.Origin != "" {
		req.Header.Set("Origin", s.Origin)
	}
	resp, err := d.Client().Do(req)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch failed: %s", resp.Status)
	}
	if resp.ContentLength > 0 {
		d.AddExpectedBytes(int(resp.ContentLength))
	}
	data, err := io.ReadAll(io.TeeReader(&readerContext{d.Context(), resp.Body}, d))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	savedPath, err := d.Sink().SaveBlob(d.Context(), d.Filename(), Blob{
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		return err
	}
	d.SetSavedPath(savedPath)
	return nil
}

// CanvasRedraw fetches the URL like an image element would, decodes the bitmap and
// re-encodes it in the format the URL extension names (PNG unless .jpg/.jpeg). A
// decode or encode failure is an ordinary strategy failure.
type CanvasRedraw struct{}

func (CanvasRedraw) Name() string {
	return StrategyCanvasRedraw
}

func (s CanvasRedraw) Deliver(d Delivery) error {
	req, err := http.NewRequestWithContext(d.Context(), http.MethodGet, d.URL(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	resp, err := d.Client().Do(req)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch failed: %s", resp.Status)
	}
	if resp.ContentLength > 0 {
		d.AddExpectedBytes(int(resp.ContentLength))
	}
	img, _, err := image.Decode(io.TeeReader(&readerContext{d.Context(), resp.Body}, d))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	buf := bytes.Buffer{}
	blob := Blob{}
	switch extensionOf(d.URL()) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, img, nil)
		blob.ContentType = "image/jpeg"
	default:
		err = png.Encode(&buf, img)
		blob.ContentType = "image/png"
	}
	if err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	blob.Data = buf.Bytes()
	savedPath, err := d.Sink().SaveBlob(d.Context(), d.Filename(), blob)
	if err != nil {
		return err
	}
	d.SetSavedPath(savedPath)
	return nil
}

func extensionOf(rawURL string) string {
	filename, err := util.FilenameFromURLString(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(filename))
}

// NewTab hands the URL itself off via the sink. It is the terminal strategy: sinks
// must implement OpenTab infallibly, so a chain ending in NewTab cannot fail.
type NewTab struct{}

func (NewTab) Name() string {
	return StrategyNewTab
}

func (NewTab) Deliver(d Delivery) error {
	return d.Sink().OpenTab(d.Context(), d.URL())
}
