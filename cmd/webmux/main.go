// Webmux streams a running tmux session to web browsers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/xdg"
	"github.com/webmux/webmux/pkg/server"
	"github.com/webmux/webmux/pkg/sessions"
)

const (
	ConfigDirName  = "webmux"
	ConfigFileName = "config.toml"
)

func main() {
	bi, _ := debug.ReadBuildInfo()

	cmd := &cli.Command{
		Name:    "webmux",
		Usage:   "Stream a tmux session to a web browser",
		Version: bi.Main.Version,
		Flags:   flags(),
		Action:  run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	initLog(cmd.Bool("pretty-log"))

	if cmd.Bool("list") {
		return listSessions(ctx)
	}

	cfg := server.Config{
		BindAddr: cmd.String("bind"),
		Port:     cmd.Int("port"),
		Session:  cmd.String("session"),
	}
	if cfg.Session == "" {
		return errors.New("missing tmux session name (use --session, or --list to see what's available)")
	}

	if cmd.Bool("pretty-log") {
		banner(cfg)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg).Run(ctx)
}

func flags() []cli.Flag {
	fs := []cli.Flag{
		&cli.BoolFlag{
			Name:    "list",
			Aliases: []string{"l"},
			Usage:   "list available tmux sessions and exit",
		},
		&cli.BoolFlag{
			Name:  "pretty-log",
			Usage: "human-readable console logging, instead of JSON",
		},
	}

	return append(fs, server.Flags(configFile())...)
}

// configFile returns the path to the app's configuration file.
// It also creates an empty file if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	path, err := xdg.CreateFile(xdg.ConfigHome, ConfigDirName, ConfigFileName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create config file")
	}
	return altsrc.StringSourcer(path)
}

// initLog initializes the process-wide logger: structured JSON by
// default, a human-readable console in pretty mode.
func initLog(pretty bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// listSessions prints a table of the running tmux sessions.
func listSessions(ctx context.Context) error {
	list, err := sessions.List(ctx)
	if err != nil || len(list) == 0 {
		fmt.Println("No tmux sessions found.")
		fmt.Println("Create one with: tmux new -s <name>")
		return nil
	}

	fmt.Println()
	fmt.Printf("  %-20s  %s  %s\n", "SESSION", "WINDOWS", "ATTACHED")
	for _, s := range list {
		attached := "no"
		if s.Attached {
			attached = "yes"
		}
		fmt.Printf("  %-20s  %7d  %s\n", s.Name, s.Windows, attached)
	}
	fmt.Println()
	return nil
}

// banner prints the startup summary in pretty mode.
func banner(cfg server.Config) {
	fmt.Println()
	fmt.Println("  webmux")
	fmt.Println("  ─────────────────────────────────")
	fmt.Printf("  Session:  %s\n", cfg.Session)
	fmt.Printf("  URL:      http://%s:%d\n", cfg.BindAddr, cfg.Port)
	fmt.Println("  ─────────────────────────────────")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()
}
