package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fakenotify/fakenotify/internal/cmd"
	"github.com/fakenotify/fakenotify/internal/daemonrun"
)

func startMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 0 {
		return errors.New("unexpected arguments provided")
	}

	return daemonrun.Run(daemonrun.Options{
		ConfigPath: startConfiguration.config,
		SocketPath: rootConfiguration.socket,
	})
}

var startCommand = &cobra.Command{
	Use:   "start",
	Short: "Starts the fakenotify daemon in the foreground",
	Run:   cmd.Mainify(startMain),
}

var startConfiguration struct {
	config string
}

func init() {
	flags := startCommand.Flags()
	flags.StringVar(&startConfiguration.config, "config", "/etc/fakenotify/fakenotify.toml", "configuration file path")
}
