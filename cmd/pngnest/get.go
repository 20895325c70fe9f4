package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/r3labs/diff/v3"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/pngnest/pngnest"
	"github.com/pngnest/pngnest/generic"
	"github.com/pngnest/pngnest/internal/journal"
	"github.com/pngnest/pngnest/internal/session"
	"github.com/pngnest/pngnest/internal/syncutil"
)

func getCommand(ctx context.Context) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "deliver catalog assets to a local directory",
		ArgsUsage: "SLUG [SLUG...]",
		Flags: []cli.Flag{
			catalogFlag(),
			&cli.StringFlag{
				Name:  "target",
				Value: ".",
				Usage: "save delivered files to `DIR`",
			},
			&cli.StringFlag{
				Name:  "variant",
				Value: "png",
				Usage: "deliver the png or sticker `VARIANT`",
			},
		},
		Action: func(c *cli.Context) error {
			catalog, err := pngnest.LoadCatalog(c.String("catalog"), nil)
			if err != nil {
				return err
			}
			variant := pngnest.Variant(c.String("variant"))
			for _, slug := range c.Args().Slice() {
				if err := get(ctx, catalog, slug, c.String("target"), variant); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func get(ctx context.Context, catalog *pngnest.Catalog, slug string, target string, variant pngnest.Variant) error {
	logger := zap.S()
	asset, ok := catalog.BySlug(slug)
	if !ok {
		return fmt.Errorf("unknown asset %q", slug)
	}
	logger.Infof("Delivering %s into %s", slug, target)

	cfg := session.DefaultConfig
	cfg.TargetDir = target
	ses, err := session.New(cfg, ctx)
	if err != nil {
		return err
	}
	defer ses.Close()

	events, err := ses.Subscribe()
	if err != nil {
		return err
	}
	bar := progressbar.DefaultBytes(1, "delivering")
	var started syncutil.Event
	var stopped syncutil.Event
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for event := range events.Receive() {
			logger.Debugf("event: %T: %v", event, event.Delivery())
			switch e := event.(type) {
			case session.DeliveryStarted:
				started.Set()
			case session.DeliveryStopped:
				stopped.Set()
			case session.DeliveryUpdated:
				if e.NewState.Expected > 0 && bar.GetMax() != e.NewState.Expected {
					bar.ChangeMax(e.NewState.Expected)
				}
				generic.Unwrap_(bar.Set(e.NewState.Transferred))
				changes, err := diff.Diff(e.OldState, e.NewState)
				if err != nil {
					logger.Errorf("failed to diff old and new delivery state: %v", err)
				} else {
					for _, change := range changes {
						logger.Debugf("%v: %#v -> %#v", change.Path, change.From, change.To)
					}
				}
			}
		}
	}()

	d, err := ses.AddDelivery(asset, session.AddDeliveryOptions{Variant: variant})
	if err != nil {
		return err
	}
	logger.Info("Starting delivery")
	d.Start()
	<-started.Wait()

	select {
	case <-stopped.Wait():
		state, serr := d.State()
		switch {
		case serr == nil && state.Status == journal.DeliveryStatusFailed:
			return fmt.Errorf("delivery failed: %s", state.Error)
		case serr == nil && state.Status == journal.DeliveryStatusHandedOff:
			logger.Infof("Delivery handed off via %s", state.Strategy)
		case serr == nil && state.Status == journal.DeliveryStatusComplete:
			logger.Infof("Delivery complete: %s", state.Path)
		default:
			logger.Info("Delivery stopped")
		}
	case <-ctx.Done():
		logger.Info("Exiting gracefully...")
	}

	ses.Close()
	wg.Wait()

	return nil
}
