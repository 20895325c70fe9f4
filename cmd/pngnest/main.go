package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pngnest/pngnest"
	"github.com/pngnest/pngnest/async"
	"github.com/pngnest/pngnest/internal/config"
	"github.com/pngnest/pngnest/internal/index"
	"github.com/pngnest/pngnest/internal/journal"
	"github.com/pngnest/pngnest/internal/server"
	"github.com/pngnest/pngnest/internal/session"
	"github.com/pngnest/pngnest/internal/watch"
	"github.com/pngnest/pngnest/unsplash"
)

func main() {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := logConfig.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &cli.App{
		Name:  "pngnest",
		Usage: "transparent PNG gallery and delivery service",
		Commands: []*cli.Command{
			serveCommand(ctx),
			getCommand(ctx),
			resolveCommand(),
			notifyCommand(ctx),
			tagsCommand(),
			indexCommand(),
			catalogCommand(),
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
		if err != nil {
			logger.Fatal(err.Error())
		}
	case <-ctx.Done():
		stop()
		if err = <-result; err != nil {
			logger.Fatal(err.Error())
		}
	}
}

func serveCommand(ctx context.Context) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the gallery and delivery service",
		Action: func(c *cli.Context) error {
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	logger := zap.S()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.TargetDir, 0750); err != nil {
		return fmt.Errorf("creating target dir: %w", err)
	}

	var catalogOptions []pngnest.CatalogOption
	if cfg.AssetBase != "" {
		catalogOptions = append(catalogOptions, pngnest.WithAssetBase(cfg.AssetBase))
	}
	catalog, err := pngnest.LoadCatalog(cfg.CatalogPath, nil, catalogOptions...)
	if err != nil {
		return err
	}
	logger.Infow("catalog loaded", "path", cfg.CatalogPath, "assets", catalog.Len())

	j, err := journal.NewJournal(cfg.JournalPath())
	if err != nil {
		return err
	}
	defer j.Close()
	if err := j.ResumeInterrupted(); err != nil {
		return err
	}

	idx, err := index.New(cfg.IndexPath())
	if err != nil {
		return err
	}
	defer idx.Close()
	if changed, err := idx.Rebuild(catalog, false); err != nil {
		return err
	} else if changed {
		logger.Infow("provider index rebuilt")
	}

	ses, err := session.New(session.Config{
		TargetDir: cfg.TargetDir,
		Journal:   j,
		Notifier: unsplash.NewNotifier(unsplash.NotifierConfig{
			APIBase:   cfg.APIBase,
			AccessKey: cfg.AccessKey,
		}),
	}, ctx)
	if err != nil {
		return err
	}
	defer ses.Close()

	var reload <-chan struct{}
	if cfg.Watch {
		w, err := watch.New(watch.DefaultConfig(cfg.CatalogPath))
		if err != nil {
			return err
		}
		if reload, err = w.Start(); err != nil {
			return err
		}
		defer w.Stop()
	}

	srv, err := server.New(server.Options{
		Port:           cfg.Port,
		CatalogPath:    cfg.CatalogPath,
		CatalogOptions: catalogOptions,
		Catalog:        catalog,
		Session:        ses,
		Journal:        j,
		Index:          idx,
		Reload:         reload,
	})
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}
