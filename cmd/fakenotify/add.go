package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fakenotify/fakenotify/internal/cmd"
	"github.com/fakenotify/fakenotify/pkg/protocol"
)

func addMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return usageErrorf("exactly one path must be specified")
	}
	path := arguments[0]

	if !addConfiguration.recursive {
		cmd.Warning("the daemon always watches dynamically added paths recursively; --recursive=false has no effect")
	}

	conn, err := dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := protocol.WriteFrame(conn, protocol.KindAdd, protocol.EncodeAdd(0, 0, path)); err != nil {
		return errors.Wrap(err, "unable to send ADD request")
	}
	kind, payload, err := protocol.ReadFrame(conn)
	if err != nil {
		return errors.Wrap(err, "unable to read ADD response")
	}
	if kind == protocol.KindAddErr {
		protoErr, _ := protocol.DecodeErr(payload)
		if protoErr != nil {
			return protoErr
		}
		return errors.New("daemon rejected ADD")
	}
	wd, err := protocol.DecodeAddOK(payload)
	if err != nil {
		return errors.Wrap(err, "unable to decode ADD response")
	}

	command.Printf("watch %d added for %s\n", wd, path)
	return nil
}

var addCommand = &cobra.Command{
	Use:   "add PATH",
	Short: "Adds a watch on PATH",
	Run:   mainify(addMain),
}

var addConfiguration struct {
	recursive    bool
	pollInterval string
}

func init() {
	flags := addCommand.Flags()
	flags.BoolVar(&addConfiguration.recursive, "recursive", true, "watch PATH recursively")
	flags.StringVar(&addConfiguration.pollInterval, "poll-interval", "", "override the daemon's default poll interval for this watch (accepted for parity with the configuration file; the wire ADD request carries no per-call interval, so this is currently advisory only)")
}
