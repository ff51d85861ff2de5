package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fakenotify/fakenotify/internal/cmd"
	"github.com/fakenotify/fakenotify/internal/daemonrun"
)

func runMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 0 {
		return errors.New("unexpected arguments provided")
	}

	// A missing .env is not an error; it's simply absent in most deployments.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		cmd.Warning(fmt.Sprintf("unable to load .env file: %v", err))
	}

	return daemonrun.Run(daemonrun.Options{
		ConfigPath: runConfiguration.config,
		SocketPath: runConfiguration.socket,
	})
}

var rootCommand = &cobra.Command{
	Use:   "fakenotify-daemon",
	Short: "Runs the fakenotify daemon",
	Run:   cmd.Mainify(runMain),
}

var runConfiguration struct {
	config string
	socket string
}

func init() {
	flags := rootCommand.Flags()
	flags.StringVar(&runConfiguration.config, "config", "/etc/fakenotify/fakenotify.toml", "configuration file path")
	flags.StringVar(&runConfiguration.socket, "socket", "", "override the configured control-plane socket path")
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		cmd.Fatal(err)
	}
}
