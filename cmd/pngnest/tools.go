package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/pngnest/pngnest"
	"github.com/pngnest/pngnest/internal/config"
	"github.com/pngnest/pngnest/internal/index"
	"github.com/pngnest/pngnest/unsplash"
)

func catalogFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "catalog",
		Value:   config.DefaultCatalog,
		EnvVars: []string{"PNGNEST_CATALOG"},
		Usage:   "load the catalog from `FILE`",
	}
}

func indexFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "index",
		Value: filepath.Join(config.DefaultDataDir, "index.db"),
		Usage: "provider index database `FILE`",
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "recover provider photo IDs from raw asset references",
		ArgsUsage: "RAW [RAW...]",
		Action: func(c *cli.Context) error {
			for _, raw := range c.Args().Slice() {
				match, err := pngnest.DefaultResolver.Match(raw)
				if err != nil {
					fmt.Printf("%s: %v\n", raw, err)
					continue
				}
				if match == nil {
					fmt.Printf("%s: no match\n", raw)
					continue
				}
				if match.LowConfidence {
					fmt.Printf("%s: %s (%s, low confidence)\n", raw, match.ID, match.PatternName)
				} else {
					fmt.Printf("%s: %s (%s)\n", raw, match.ID, match.PatternName)
				}
			}
			return nil
		},
	}
}

func notifyCommand(ctx context.Context) *cli.Command {
	return &cli.Command{
		Name:      "notify",
		Usage:     "fire provider download notifications for raw asset references",
		ArgsUsage: "RAW [RAW...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "access-key",
				EnvVars: []string{"UNSPLASH_ACCESS_KEY"},
				Usage:   "provider API `KEY`; empty sends anonymously",
			},
			&cli.StringFlag{
				Name:    "api-base",
				Value:   unsplash.DefaultAPIBase,
				EnvVars: []string{"UNSPLASH_API_BASE"},
				Usage:   "provider API root `URL`",
			},
		},
		Action: func(c *cli.Context) error {
			notifier := unsplash.NewNotifier(unsplash.NotifierConfig{
				APIBase:   c.String("api-base"),
				AccessKey: c.String("access-key"),
			})
			for _, raw := range c.Args().Slice() {
				action := unsplash.ActionForRaw(raw)
				if action.ID == "" {
					fmt.Printf("%s: no provider ID\n", raw)
					continue
				}
				result := notifier.Notify(ctx, action)
				switch {
				case result.Err != nil:
					fmt.Printf("%s: %v\n", raw, result.Err)
				case result.Acknowledged():
					fmt.Printf("%s: acknowledged (%d)\n", raw, result.StatusCode)
				default:
					fmt.Printf("%s: status %d\n", raw, result.StatusCode)
				}
			}
			return nil
		},
	}
}

func tagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "list the tag vocabulary with asset counts",
		Flags: []cli.Flag{catalogFlag()},
		Action: func(c *cli.Context) error {
			catalog, err := pngnest.LoadCatalog(c.String("catalog"), nil)
			if err != nil {
				return err
			}
			router := pngnest.NewRouter(nil)
			counts := catalog.TagCounts()
			for _, entry := range router.Vocabulary().Entries() {
				fmt.Printf("%-16s %-24s %d\n", entry.Tag, entry.Slug, counts[entry.Tag])
			}
			return nil
		},
	}
}

// providerIDs derives the provider ID for every catalog asset the same way the
// index does, keyed by ID with the owning slug as value.
func providerIDs(catalog *pngnest.Catalog) map[string]string {
	ids := make(map[string]string, catalog.Len())
	for _, asset := range catalog.Assets() {
		id := asset.UnsplashID
		if id == "" {
			id, _ = pngnest.DefaultResolver.Resolve(asset.ID)
		}
		if id == "" {
			continue
		}
		if _, exists := ids[id]; !exists {
			ids[id] = asset.Slug
		}
	}
	return ids
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "manage the provider ID index",
		Subcommands: []*cli.Command{
			{
				Name:  "rebuild",
				Usage: "rebuild the index from the catalog",
				Flags: []cli.Flag{
					catalogFlag(),
					indexFlag(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "rebuild even if the catalog checksum is unchanged",
					},
				},
				Action: func(c *cli.Context) error {
					catalog, err := pngnest.LoadCatalog(c.String("catalog"), nil)
					if err != nil {
						return err
					}
					idx, err := index.New(c.String("index"))
					if err != nil {
						return err
					}
					defer idx.Close()
					changed, err := idx.Rebuild(catalog, c.Bool("force"))
					if err != nil {
						return err
					}
					status, err := idx.Status()
					if err != nil {
						return err
					}
					if changed {
						fmt.Printf("rebuilt: %d entries\n", status.Entries)
					} else {
						fmt.Printf("unchanged: %d entries\n", status.Entries)
					}
					return nil
				},
			},
			{
				Name:  "check",
				Usage: "compare the index against the catalog",
				Flags: []cli.Flag{catalogFlag(), indexFlag()},
				Action: func(c *cli.Context) error {
					catalog, err := pngnest.LoadCatalog(c.String("catalog"), nil)
					if err != nil {
						return err
					}
					idx, err := index.New(c.String("index"))
					if err != nil {
						return err
					}
					defer idx.Close()
					entries, err := idx.Entries()
					if err != nil {
						return err
					}
					expected := providerIDs(catalog)
					missing := 0
					for id := range expected {
						if _, ok := entries[id]; !ok {
							missing++
						}
					}
					stale := 0
					for id := range entries {
						if _, ok := expected[id]; !ok {
							stale++
						}
					}
					fmt.Printf("%d indexed, %d missing, %d stale\n", len(entries), missing, stale)
					if missing > 0 || stale > 0 {
						return fmt.Errorf("index out of date, run `pngnest index rebuild`")
					}
					return nil
				},
			},
		},
	}
}

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "inspect the catalog document",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "parse and validate the catalog document",
				Flags: []cli.Flag{catalogFlag()},
				Action: func(c *cli.Context) error {
					catalog, err := pngnest.LoadCatalog(c.String("catalog"), nil)
					if err != nil {
						return err
					}
					fmt.Printf("%d assets (checksum %s)\n", catalog.Len(), catalog.Checksum())
					return nil
				},
			},
		},
	}
}
