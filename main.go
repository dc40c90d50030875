package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	app "github.com/rocketscienceinc/sunmoon/internal"
	"github.com/rocketscienceinc/sunmoon/internal/config"
)

// main - is the entry point of the application. It parses the command line and runs the chosen mode.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	cmd := &cli.Command{
		Name:           "sunmoon",
		Usage:          "Sun vs Moon tic-tac-toe",
		DefaultCommand: "serve",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yml",
				Usage:   "path to the YAML config file, environment only when it does not exist",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP and WebSocket servers",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					conf := initConfig(cmd.String("config"))
					logger := initLogger(conf, os.Stdout)

					return app.RunApp(ctx, logger, conf)
				},
			},
			{
				Name:  "play",
				Usage: "play a hot-seat game in the terminal",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					conf := initConfig(cmd.String("config"))
					logger := initLogger(conf, os.Stderr)

					return app.RunTerminal(ctx, logger, conf, os.Stdin, os.Stdout)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(fmt.Errorf("app run failed: %w", err))
	}
}

// initialize config.
func initConfig(path string) *config.Config {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		conf, envErr := config.LoadEnv()
		if envErr != nil {
			panic(fmt.Errorf("unable to load config from environment: %w", envErr))
		}

		return conf
	}

	return config.MustLoad(path)
}

// initialize logger.
func initLogger(conf *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
