package server

import (
	"errors"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

const (
	DefaultPort     = 8080
	DefaultBindAddr = "0.0.0.0"
)

// Flags defines CLI flags to configure the server. These flags can
// also be set using environment variables and the application's
// configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Aliases: []string{"b"},
			Usage:   "address to bind to",
			Value:   DefaultBindAddr,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WEBMUX_BIND_ADDRESS"),
				toml.TOML("server.bind_address", configFilePath),
			),
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "port to listen on",
			Value:   DefaultPort,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WEBMUX_PORT"),
				toml.TOML("server.port", configFilePath),
			),
			Validator: validatePort,
		},
		&cli.StringFlag{
			Name:    "session",
			Aliases: []string{"s"},
			Usage:   "tmux session name to attach clients to",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WEBMUX_SESSION"),
				toml.TOML("server.session", configFilePath),
			),
		},
	}
}

func validatePort(p int) error {
	if p < 1 || p > 65535 {
		return errors.New("out of range [1-65535]")
	}
	return nil
}
