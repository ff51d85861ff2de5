// Command fakenotify is the administrative client for the fakenotify
// daemon: it starts the daemon and issues ADD/REMOVE/LIST/STATUS requests
// over the same control-plane socket the shim uses.
package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fakenotify/fakenotify/internal/cmd"
	"github.com/fakenotify/fakenotify/pkg/fakenotify"
)

var rootCommand = &cobra.Command{
	Use:     "fakenotify",
	Short:   "Administers the fakenotify daemon",
	Version: fakenotify.Version,
}

var rootConfiguration struct {
	socket string
}

func init() {
	rootCommand.PersistentFlags().StringVar(&rootConfiguration.socket, "socket", "", "control-plane socket path (defaults to the daemon's standard location)")
	rootCommand.SetVersionTemplate("fakenotify {{.Version}} (protocol " + strconv.Itoa(fakenotify.ProtocolVersion) + ")\n")
	rootCommand.AddCommand(startCommand, addCommand, removeCommand, listCommand, statusCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		cmd.FatalWithCode(err, 2)
	}
}
