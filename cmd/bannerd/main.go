package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/fbanim/bannerd/internal/config"
	"github.com/fbanim/bannerd/internal/logging"
)

const (
	appName    = "bannerd"
	appVersion = "v1.0.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		logging.Error("%v", err)
		logging.Close()
		log.Fatalln(err)
	}
	logging.Close()
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    appName,
		Usage:   "play BMP animations on the Linux framebuffer",
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"f"},
				Usage:   "read settings from a YAML `FILE`",
				Sources: cli.EnvVars("BANNERD_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "device",
				Usage: "framebuffer device (default /dev/fb0)",
			},
			&cli.BoolFlag{
				Name:    "preserve-mode",
				Aliases: []string{"p"},
				Usage:   "leave the display in ARGB32 mode on exit",
			},
			&cli.StringFlag{
				Name:  "interval",
				Usage: "frame interval in milliseconds, or `N`fps",
			},
			&cli.IntFlag{
				Name:    "run-count",
				Aliases: []string{"c"},
				Usage:   "play the animation `N` times, then exit (-c 1 plays it once)",
			},
			&cli.StringFlag{
				Name:    "command-pipe",
				Aliases: []string{"i"},
				Usage:   "take run/skip/exit commands from `PIPE` instead of free running",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug messages",
			},
			&cli.BoolFlag{
				Name:    "no-daemon",
				Aliases: []string{"D"},
				Usage:   "log to stderr instead of syslog",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			playCommand(),
			inspectCommand(),
			bridgeCommand(),
		},
	}
}

// loadConfig builds the configuration from the command line, the
// environment and the optional config file, then sets up logging from it.
func loadConfig(cmd *cli.Command, interval string) (*config.Config, error) {
	opts := config.LoadOptions{
		ConfigFile:   strings.TrimSpace(cmd.String("config")),
		Device:       strings.TrimSpace(cmd.String("device")),
		PreserveMode: cmd.Bool("preserve-mode"),
		Interval:     strings.TrimSpace(cmd.String("interval")),
		RunCount:     int(cmd.Int("run-count")),
		CommandPipe:  strings.TrimSpace(cmd.String("command-pipe")),
		LogLevel:     strings.TrimSpace(cmd.String("log-level")),
		NoSyslog:     cmd.Bool("no-daemon"),
	}
	if opts.Interval == "" {
		opts.Interval = interval
	}
	if cmd.IsSet("listen") {
		opts.Listen = strings.TrimSpace(cmd.String("listen"))
	}
	if cmd.IsSet("pipe") {
		opts.BridgePipe = strings.TrimSpace(cmd.String("pipe"))
	}

	cfg, err := config.LoadWithOverrides(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := setupLogging(cfg.Logging, cmd.Bool("verbose")); err != nil {
		return nil, err
	}
	return cfg, nil
}

var useSyslog = logging.UseSyslog

// setupLogging applies the configured level and destination. When syslog
// cannot be reached the daemon keeps running on the current writer, which
// is stderr unless redirected.
func setupLogging(cfg config.LoggingConfig, verbose bool) error {
	logging.SetLevelFromString(cfg.Level)
	if verbose {
		logging.SetLevel(logging.LevelDebug)
	}

	if !cfg.Syslog {
		logging.SetOutput(os.Stderr)
		return nil
	}
	if err := useSyslog(cfg.Tag); err != nil {
		logging.Warn("Syslog unavailable, logging to stderr: %v", err)
	}
	return nil
}
