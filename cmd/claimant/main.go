package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/solvant/claimant/internal/app"
	"github.com/solvant/claimant/internal/setup/config"
	"github.com/solvant/claimant/internal/setup/logging"
	"github.com/solvant/claimant/internal/store"
	"github.com/solvant/claimant/internal/wishlist"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var (
	errNoChannels  = errors.New("no channels configured")
	errNameMissing = errors.New("character name required")
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cmd := &cli.Command{
		Name:  "claimant",
		Usage: "Automate rolling and claiming against the Mudae game bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-dir",
				Usage: "Directory searched first for claimant.toml",
			},
			&cli.StringFlag{
				Name:    "token",
				Aliases: []string{"t"},
				Usage:   "Discord user token (overrides the config file)",
			},
			&cli.StringSliceFlag{
				Name:    "channels",
				Aliases: []string{"c"},
				Usage:   "Channel IDs to watch (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Logging level (debug, info, warn, error)",
			},
		},
		Action:   runApp,
		Commands: []*cli.Command{wishlistCommand()},
	}

	return cmd.Run(context.Background(), os.Args)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, usedPath, err := config.Load(c.String("config-dir"))
	if err != nil {
		return nil, err
	}

	if usedPath != "" {
		log.Printf("Using config from %s", usedPath)
	}

	if token := c.String("token"); token != "" {
		cfg.Discord.Token = token
	}

	if channels := c.StringSlice("channels"); len(channels) > 0 {
		cfg.Discord.Channels = cfg.Discord.Channels[:0]

		for _, raw := range channels {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid channel ID %q: %w", raw, err)
			}

			cfg.Discord.Channels = append(cfg.Discord.Channels, id)
		}
	}

	if level := c.String("log-level"); level != "" {
		cfg.Debug.LogLevel = level
	}

	return cfg, nil
}

func runApp(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if len(cfg.Discord.Channels) == 0 {
		return errNoChannels
	}

	logger, err := logging.NewManager(cfg.Debug.LogDir, cfg.Debug.LogLevel, cfg.Debug.MaxLogsToKeep).Logger()
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Sync()

	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting", zap.Uint64s("channels", cfg.Discord.Channels))

	return a.Run(ctx)
}

func wishlistCommand() *cli.Command {
	return &cli.Command{
		Name:  "wishlist",
		Usage: "Manage the character wishlist",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a character",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "series", Usage: "Restrict the match to a series"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					name := c.Args().First()
					if name == "" {
						return errNameMissing
					}

					return withWishlist(c, func(wl *wishlist.Store) error {
						added, err := wl.Add(name, c.String("series"))
						if err != nil {
							return err
						}

						if !added {
							fmt.Printf("%s is already on the wishlist\n", name)
							return nil
						}

						fmt.Printf("Added %s\n", name)

						return nil
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a character",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, c *cli.Command) error {
					name := c.Args().First()
					if name == "" {
						return errNameMissing
					}

					return withWishlist(c, func(wl *wishlist.Store) error {
						if err := wl.Remove(name); err != nil {
							return err
						}

						fmt.Printf("Removed %s\n", name)

						return nil
					})
				},
			},
			{
				Name:  "list",
				Usage: "Show every entry, highest priority first",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withWishlist(c, func(wl *wishlist.Store) error {
						entries := wl.SortedEntries()
						if len(entries) == 0 {
							fmt.Println("Wishlist is empty")
							return nil
						}

						for _, e := range entries {
							line := e.Name
							if e.Series != "" {
								line += " (" + e.Series + ")"
							}

							if e.Priority != 0 {
								line += fmt.Sprintf(" p%d", e.Priority)
							}

							if e.Verified {
								line += " [verified]"
							}

							fmt.Println(line)
						}

						return nil
					})
				},
			},
			{
				Name:      "search",
				Usage:     "Find entries by name or series",
				ArgsUsage: "<text>",
				Action: func(ctx context.Context, c *cli.Command) error {
					query := c.Args().First()
					if query == "" {
						return errors.New("search text required")
					}

					return withWishlist(c, func(wl *wishlist.Store) error {
						matches := wl.Search(query)
						if len(matches) == 0 {
							fmt.Println("No matches")
							return nil
						}

						for _, e := range matches {
							if e.Series != "" {
								fmt.Printf("%s (%s)\n", e.Name, e.Series)
							} else {
								fmt.Println(e.Name)
							}
						}

						return nil
					})
				},
			},
			{
				Name:  "clear",
				Usage: "Remove every entry",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withWishlist(c, (*wishlist.Store).Clear)
				},
			},
			{
				Name:      "export",
				Usage:     "Write the wishlist as JSON",
				ArgsUsage: "<file>",
				Action: func(ctx context.Context, c *cli.Command) error {
					path := c.Args().First()
					if path == "" {
						return errors.New("output file required")
					}

					return withWishlist(c, func(wl *wishlist.Store) error {
						data, err := wl.Export()
						if err != nil {
							return err
						}

						return os.WriteFile(path, data, 0o600)
					})
				},
			},
			{
				Name:      "import",
				Usage:     "Replace the wishlist from JSON",
				ArgsUsage: "<file>",
				Action: func(ctx context.Context, c *cli.Command) error {
					path := c.Args().First()
					if path == "" {
						return errors.New("input file required")
					}

					return withWishlist(c, func(wl *wishlist.Store) error {
						data, err := os.ReadFile(path)
						if err != nil {
							return err
						}

						return wl.Import(data)
					})
				},
			},
		},
	}
}

// withWishlist opens the database, runs fn against the wishlist, and closes.
func withWishlist(c *cli.Command, fn func(*wishlist.Store) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Storage.DatabasePath, zap.NewNop())
	if err != nil {
		return err
	}
	defer db.Close()

	wl, err := wishlist.NewStore(db, cfg.Wishlist.StoreOptions(), zap.NewNop())
	if err != nil {
		return err
	}

	return fn(wl)
}
