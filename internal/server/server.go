// Package server exposes the gallery, delivery and journal surfaces over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pngnest/pngnest"
	"github.com/pngnest/pngnest/internal/index"
	"github.com/pngnest/pngnest/internal/journal"
	"github.com/pngnest/pngnest/internal/metrics"
	"github.com/pngnest/pngnest/internal/session"
	"github.com/pngnest/pngnest/internal/syncutil"
)

var (
	ErrNoCatalog = errors.New("server needs a catalog snapshot")
	ErrNoSession = errors.New("server needs a delivery session")
)

type Options struct {
	Port int
	// CatalogPath is re-read on reload signals; empty disables hot reload.
	CatalogPath string
	// CatalogOptions are applied on every reload, matching how the initial
	// snapshot was loaded.
	CatalogOptions []pngnest.CatalogOption
	Catalog        *pngnest.Catalog
	Router         *pngnest.Router
	Session        *session.Session
	// Journal backs the delivery history endpoints; nil serves live state only.
	Journal *journal.Journal
	// Index backs the provider-ID lookup endpoint; nil turns it into a plain miss.
	Index index.Index
	// Reload delivers catalog change signals, usually from a watch.Watcher.
	Reload <-chan struct{}
}

type Server struct {
	port           int
	catalogPath    string
	catalogOptions []pngnest.CatalogOption

	catalog   *syncutil.RWMutexed[*pngnest.Catalog]
	router    *pngnest.Router
	session   *session.Session
	journal   *journal.Journal
	index     index.Index
	reload    <-chan struct{}
	validator *validator.Validate
	log       *zap.SugaredLogger
}

func New(opts Options) (*Server, error) {
	if opts.Catalog == nil {
		return nil, ErrNoCatalog
	}
	if opts.Session == nil {
		return nil, ErrNoSession
	}
	router := opts.Router
	if router == nil {
		router = pngnest.NewRouter(nil)
	}
	s := &Server{
		port:           opts.Port,
		catalogPath:    opts.CatalogPath,
		catalogOptions: opts.CatalogOptions,
		catalog:        syncutil.NewRWMutexed(opts.Catalog),
		router:      router,
		session:     opts.Session,
		journal:     opts.Journal,
		index:       opts.Index,
		reload:      opts.Reload,
		validator:   validator.New(),
		log:         zap.S().Named("server"),
	}
	metrics.CatalogAssets.Set(float64(opts.Catalog.Len()))
	return s, nil
}

// Start serves until ctx ends, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.reload != nil {
		go s.watchReloads(ctx)
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warnw("forcing server close", "err", err)
			srv.Close()
		}
	}()
	s.log.Infow("listening", "port", s.port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// snapshot returns the current immutable catalog.
func (s *Server) snapshot() *pngnest.Catalog {
	return s.catalog.Get()
}

func (s *Server) watchReloads(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-s.reload:
			if !ok {
				return
			}
			s.reloadCatalog()
		}
	}
}

func (s *Server) reloadCatalog() {
	snapshot, err := pngnest.LoadCatalog(s.catalogPath, s.router.Vocabulary(), s.catalogOptions...)
	if err != nil {
		s.log.Errorw("failed to reload catalog, keeping previous snapshot",
			"path", s.catalogPath, "err", err)
		return
	}
	s.catalog.Set(snapshot)
	metrics.CatalogAssets.Set(float64(snapshot.Len()))
	metrics.CatalogReloads.Inc()
	if s.index != nil {
		if _, err := s.index.Rebuild(snapshot, false); err != nil {
			s.log.Warnw("failed to rebuild provider index", "err", err)
		}
	}
	s.session.Announce(session.CatalogReloaded{
		Checksum: snapshot.Checksum(),
		Assets:   snapshot.Len(),
	})
	s.log.Infow("catalog reloaded", "assets", snapshot.Len(), "checksum", snapshot.Checksum())
}

// jsonSerializer is echo's default serializer on top of goccy/go-json.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if ute, ok := err.(*json.UnmarshalTypeError); ok {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("Unmarshal type error: expected=%v, got=%v, field=%v, offset=%v",
				ute.Type, ute.Value, ute.Field, ute.Offset)).SetInternal(err)
	} else if se, ok := err.(*json.SyntaxError); ok {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("Syntax error: offset=%v, error=%v", se.Offset, se.Error())).SetInternal(err)
	}
	return err
}
