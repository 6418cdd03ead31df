package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/meur/eloforge/internal/api"
	"github.com/meur/eloforge/internal/battle"
	"github.com/meur/eloforge/internal/config"
	"github.com/meur/eloforge/internal/export"
	"github.com/meur/eloforge/internal/letterboxd"
	"github.com/meur/eloforge/internal/rating"
	"github.com/meur/eloforge/internal/storage"
	"github.com/meur/eloforge/internal/tmdb"
)

type env struct {
	cfg    *config.Config
	store  *storage.Store
	logger *slog.Logger
}

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "eloforge",
		Usage: "administer ranked lists",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file", EnvVars: []string{"CONFIG_PATH"}},
			&cli.StringFlag{Name: "db", Usage: "SQLite database path (overrides config)"},
		},
		Commands: []*cli.Command{
			listsCommand(),
			rankingCommand(),
			exportCommand(),
			importCommand(),
			refreshPostersCommand(),
			battleCommand(),
			tokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// withEnv opens config and storage around a command action
func withEnv(action func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.LoadConfig(c.String("config"))
		if err != nil {
			return err
		}
		if db := c.String("db"); db != "" {
			cfg.Database.Path = db
		}

		store, err := storage.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		return action(c, &env{cfg: cfg, store: store, logger: cfg.Log.NewLogger(os.Stderr)})
	}
}

func listsCommand() *cli.Command {
	return &cli.Command{
		Name:  "lists",
		Usage: "show a user's lists",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "owner user id"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			lists, err := e.store.GetListsByUser(c.Context, c.String("user"))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tITEMS\tPUBLIC\tUPDATED")
			for _, l := range lists {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
					l.ID, l.Title, l.Category, humanize.Comma(int64(l.ItemCount)), l.IsPublic, humanize.Time(l.UpdatedAt))
			}
			return tw.Flush()
		}),
	}
}

func rankingCommand() *cli.Command {
	return &cli.Command{
		Name:      "ranking",
		Usage:     "print a list ordered by rating",
		ArgsUsage: "LIST_ID",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top", Usage: "only show the first N items"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			listID := c.Args().First()
			if listID == "" {
				return errors.New("LIST_ID is required")
			}
			ranking, err := e.store.Ranking(c.Context, listID)
			if err != nil {
				return err
			}
			if top := c.Int("top"); top > 0 && len(ranking) > top {
				ranking = ranking[:top]
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tTITLE\tRATING\tADDED")
			for _, item := range ranking {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					humanize.Ordinal(item.Rank), item.Title, humanize.Ftoa(item.Rating), humanize.Time(item.CreatedAt))
			}
			return tw.Flush()
		}),
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "write a list's ranking to an xlsx file",
		ArgsUsage: "LIST_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default: <title>.xlsx)"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			list, err := e.store.GetList(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			if list == nil {
				return storage.ErrNotFound
			}
			ranking, err := e.store.Ranking(c.Context, list.ID)
			if err != nil {
				return err
			}

			out := c.String("out")
			if out == "" {
				out = export.SheetName(list.Title) + ".xlsx"
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			resolve := func(p string) string { return tmdb.ImageURL(e.cfg.TMDB.ImageBaseURL, p, "") }
			if err := export.WriteRanking(f, list, ranking, resolve); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Wrote %d items to %s\n", len(ranking), out)
			return nil
		}),
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import-letterboxd",
		Usage:     "create a list from a Letterboxd member's RSS feed",
		ArgsUsage: "USERNAME",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "owner user id"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			im := letterboxd.NewImporter(e.cfg.Letterboxd.BaseURL, e.cfg.Letterboxd.Timeout, e.logger)
			res, err := im.Import(c.Context, e.store, c.String("user"), c.Args().First())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Created %q (%s): %d imported, %d skipped, %d failed\n",
				res.List.Title, res.List.ID, res.Imported, res.Skipped, res.Failed)
			return nil
		}),
	}
}

func refreshPostersCommand() *cli.Command {
	return &cli.Command{
		Name:      "refresh-posters",
		Usage:     "fill in missing posters from TMDB",
		ArgsUsage: "LIST_ID",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if e.cfg.TMDB.APIKey == "" {
				return errors.New("TMDB_API_KEY is not set")
			}
			client := tmdb.NewClient(e.cfg.TMDB.APIKey,
				tmdb.WithBaseURL(e.cfg.TMDB.BaseURL),
				tmdb.WithTimeout(e.cfg.TMDB.Timeout),
				tmdb.WithRateLimit(e.cfg.TMDB.RequestsPerSecond),
			)

			items, err := e.store.ItemsWithoutImage(c.Context, c.Args().First())
			if err != nil {
				return err
			}

			updated := 0
			for _, item := range items {
				movie, err := client.MovieDetails(c.Context, item.TMDBID)
				if err != nil {
					e.logger.Warn("Movie lookup failed", "title", item.Title, "tmdb_id", item.TMDBID, "error", err)
					continue
				}
				if movie.PosterPath == "" {
					continue
				}
				if err := e.store.UpdateItemImage(c.Context, item.ID, movie.PosterPath); err != nil {
					return err
				}
				updated++
			}
			fmt.Fprintf(c.App.Writer, "Updated %d of %d posters\n", updated, len(items))
			return nil
		}),
	}
}

func battleCommand() *cli.Command {
	return &cli.Command{
		Name:      "battle",
		Usage:     "rank a list interactively from the terminal",
		ArgsUsage: "LIST_ID",
		Action: withEnv(func(c *cli.Context, e *env) error {
			battles := battle.NewManager(e.store, e.store, battle.Config{
				BaseK:          e.cfg.Rating.BaseK,
				StreakWeight:   e.cfg.Rating.StreakWeight,
				DisableStreaks: e.cfg.Rating.StreakWeight == 0,
				Selector: rating.NewSelector(nil,
					rating.WithBucketWidth(e.cfg.Rating.BucketWidth),
					rating.WithMaxRetries(e.cfg.Rating.MaxRetries),
				),
				Logger: e.logger,
			})
			defer battles.Wait()

			session, err := battles.Start(c.Context, c.Args().First(), "")
			if err != nil {
				return err
			}
			return playBattle(c.Context, session, c.App.Reader, c.App.Writer)
		}),
	}
}

// playBattle loops over matchups until the input ends or the user quits
func playBattle(ctx context.Context, session *battle.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		pair := session.Current()
		fmt.Fprintf(out, "\n[1] %s (%s)\n[2] %s (%s)\nPick 1 or 2, q to quit: ",
			pair[0].Title, humanize.Ftoa(pair[0].Rating), pair[1].Title, humanize.Ftoa(pair[1].Rating))

		if !scanner.Scan() {
			return scanner.Err()
		}

		var winner, title string
		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			winner, title = pair[0].ID, pair[0].Title
		case "2":
			winner, title = pair[1].ID, pair[1].Title
		case "q", "quit":
			return nil
		default:
			fmt.Fprintln(out, "Please answer 1, 2 or q.")
			continue
		}

		outcome, err := session.Choose(ctx, winner)
		if err != nil {
			return err
		}
		if outcome.WinnerStreak > 1 {
			fmt.Fprintf(out, "%s is on a %d-win streak\n", title, outcome.WinnerStreak)
		}
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "mint a bearer token for local development",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "token subject"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "token lifetime"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return err
			}
			token, err := api.NewAuthenticator(cfg.Auth.JWTSecret).Sign(c.String("user"), c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}
