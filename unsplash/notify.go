package unsplash

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/pngnest/pngnest"
	"github.com/pngnest/pngnest/async"
)

const (
	DefaultAPIBase = "https://api.unsplash.com"
	DefaultTimeout = 10 * time.Second
)

// An Action identifies what to tell the provider about: either a direct
// download_location URL captured at import time, or a photo ID to fill the download
// endpoint template with. The direct URL always wins when both are present.
type Action struct {
	DownloadLocation string
	ID               string
}

// ActionForAsset derives the notification action from a catalog asset, falling back to
// resolving the catalog ID when no provider ID was recorded.
func ActionForAsset(a *pngnest.Asset) Action {
	action := Action{DownloadLocation: a.DownloadLocation, ID: a.UnsplashID}
	if action.ID == "" && action.DownloadLocation == "" {
		action.ID, _ = pngnest.DefaultResolver.Resolve(a.ID)
	}
	return action
}

// ActionForRaw derives the notification action from any raw input via the resolver. An
// unresolvable input yields an empty Action, which notifies nothing and reports success.
func ActionForRaw(raw string) Action {
	id, _ := pngnest.DefaultResolver.Resolve(raw)
	return Action{ID: id}
}

// A Result reports whether a notification request was dispatched, never whether the
// provider accepted it; the HTTP outcome is advisory telemetry for logging only.
type Result struct {
	Dispatched bool
	Skipped    bool
	StatusCode int
	Err        error
}

// Acknowledged reports whether the provider answered 2xx. Callers should only ever log
// this, not branch on it.
func (r Result) Acknowledged() bool {
	return r.Dispatched && r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// A Notifier issues the provider's download-tracking request required by its API terms.
// The notification is independent of the actual file delivery and must never block or
// fail it.
type Notifier struct {
	apiBase   string
	accessKey string
	client    *http.Client
	timeout   time.Duration
	log       *zap.SugaredLogger
}

type NotifierConfig struct {
	// APIBase overrides the provider API root, e.g. for tests.
	APIBase string
	// AccessKey is the provider credential; when empty, requests go out anonymously.
	AccessKey string
	Client    *http.Client
	Timeout   time.Duration
}

func NewNotifier(cfg NotifierConfig) *Notifier {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Notifier{
		apiBase:   cfg.APIBase,
		accessKey: cfg.AccessKey,
		client:    cfg.Client,
		timeout:   cfg.Timeout,
		log:       zap.S().Named("unsplash"),
	}
}

// Notify issues the compliance request and blocks for the outcome. A no-op action (no
// URL and no ID) skips the request and still reports success. Most callers want
// Dispatch instead.
func (n *Notifier) Notify(ctx context.Context, action Action) Result {
	target := n.actionURL(action)
	if target == "" {
		return Result{Skipped: true}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{Err: fmt.Errorf("building notification request: %w", err)}
	}
	if n.accessKey != "" {
		req.Header.Set("Authorization", "Client-ID "+n.accessKey)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return Result{Dispatched: true, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return Result{Dispatched: true, StatusCode: resp.StatusCode}
}

// Dispatch fires the notification on a detached goroutine and returns immediately; the
// outcome is consumed only by logging and any supplied observers.
func (n *Notifier) Dispatch(action Action, observers ...func(Result)) {
	results := async.Run(func() Result {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		return n.Notify(ctx, action)
	})
	go func() {
		result := <-results
		n.logResult(action, result)
		for _, observe := range observers {
			observe(result)
		}
	}()
}

func (n *Notifier) actionURL(action Action) string {
	if action.DownloadLocation != "" {
		return action.DownloadLocation
	}
	if action.ID != "" {
		target := fmt.Sprintf("%s/photos/%s/download", n.apiBase, url.PathEscape(action.ID))
		if n.accessKey != "" {
			target += "?client_id=" + url.QueryEscape(n.accessKey)
		}
		return target
	}
	return ""
}

func (n *Notifier) logResult(action Action, result Result) {
	log := n.log.With("id", action.ID)
	switch {
	case result.Skipped:
		log.Debugw("nothing to notify, reporting success")
	case result.Err != nil:
		log.Warnw("download notification failed", "error", result.Err)
	case !result.Acknowledged():
		log.Warnw("download notification not acknowledged", "status", result.StatusCode)
	default:
		log.Infow("download recorded with provider", "status", result.StatusCode)
	}
}
