package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/teamsgraph/internal/auth"
	"github.com/teamsgraph/internal/config"
	"github.com/teamsgraph/internal/graph"
	"github.com/teamsgraph/internal/notify"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "tgc",
		Usage: "Teams Graph CLI - collect message reactions and post channel reminders",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to TOML configuration file",
				EnvVars: []string{"TGC_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable verbose output",
				EnvVars: []string{"TGC_VERBOSE"},
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			{
				Name:  "reactors",
				Usage: "list display names of users who liked a message",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "message",
						Aliases:  []string{"m"},
						Usage:    "Graph path of the message, e.g. teams/{team-id}/channels/{channel-id}/messages/{message-id}",
						EnvVars:  []string{"TGC_MESSAGE"},
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   "pretty",
						Usage:   "output format: pretty or json",
						EnvVars: []string{"TGC_OUTPUT"},
					},
				},
				Action: runReactors,
			},
			{
				Name:   "notify",
				Usage:  "post the configured reminder message to the channel",
				Action: runNotify,
			},
			{
				Name:  "init",
				Usage: "write a sample configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Value: "./teamsgraph.toml",
						Usage: "where to write the sample configuration",
					},
				},
				Action: runInit,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func setupLogging(c *cli.Context) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if c.Bool("verbose") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// tokenSource picks a static token when one is configured, otherwise the
// OAuth flow against the tenant.
func tokenSource(cfg *config.Config) (auth.TokenSource, error) {
	if cfg.Auth.AccessToken != "" {
		return auth.StaticToken(cfg.Auth.AccessToken), nil
	}
	return auth.NewOAuthTokenSource(auth.OAuthConfig{
		Credentials: cfg.Credentials(),
		Logger:      &log.Logger,
	})
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func runReactors(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	tokens, err := tokenSource(cfg)
	if err != nil {
		return err
	}

	client := graph.New(graph.Config{
		BaseURL:           cfg.Graph.BaseURL,
		Tokens:            tokens,
		MaxRetries:        cfg.Graph.MaxRetries,
		BackoffFactor:     cfg.Graph.BackoffFactor,
		RequestTimeout:    secondsToDuration(cfg.Graph.RequestTimeout),
		RequestsPerSecond: cfg.Graph.RequestsPerSecond,
		Logger:            &log.Logger,
	})

	names, err := client.ListLikeReactors(context.Background(), c.String("message"))
	if err != nil {
		return err
	}

	if c.String("output") == "json" {
		encoded, err := json.Marshal(names)
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	if len(names) == 0 {
		fmt.Println("No likes on this message yet.")
		return nil
	}

	fmt.Printf("%d user(s) liked the message:\n", len(names))
	for _, name := range names {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func runNotify(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	tokens, err := tokenSource(cfg)
	if err != nil {
		return err
	}

	notifier, err := notify.New(notify.Config{
		TeamID:      cfg.Notify.TeamID,
		ChannelID:   cfg.Notify.ChannelID,
		Timezone:    cfg.Notify.Timezone,
		MessageText: cfg.Notify.MessageText,
		BaseURL:     cfg.Graph.BaseURL,
		Tokens:      tokens,
		Logger:      &log.Logger,
	})
	if err != nil {
		return err
	}

	return notifier.Send(context.Background())
}

func runInit(c *cli.Context) error {
	path := c.String("path")
	if err := config.InitConfig(path); err != nil {
		return err
	}
	fmt.Printf("Sample configuration written to %s\n", path)
	return nil
}
