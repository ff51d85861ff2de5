package main

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fakenotify/fakenotify/pkg/protocol"
)

type statusView struct {
	WatchCount       uint32 `yaml:"watch_count"`
	ClientCount      uint32 `yaml:"client_count"`
	Uptime           string `yaml:"uptime"`
	EventsDispatched uint64 `yaml:"events_dispatched"`
	EventsDropped    uint64 `yaml:"events_dropped"`
}

func statusMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 0 {
		return usageErrorf("unexpected arguments provided")
	}

	conn, err := dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := protocol.WriteFrame(conn, protocol.KindStatus, nil); err != nil {
		return errors.Wrap(err, "unable to send STATUS request")
	}
	kind, payload, err := protocol.ReadFrame(conn)
	if err != nil || kind != protocol.KindStatusRsp {
		return errors.Wrap(err, "unable to read STATUS response")
	}
	status, err := protocol.DecodeStatusResp(payload)
	if err != nil {
		return errors.Wrap(err, "unable to decode STATUS response")
	}

	view := statusView{
		WatchCount:       status.WatchCount,
		ClientCount:      status.ClientCount,
		Uptime:           humanize.Time(time.Now().Add(-status.Uptime)),
		EventsDispatched: status.EventsDispatched,
		EventsDropped:    status.EventsDropped,
	}

	if statusConfiguration.format == "yaml" {
		encoded, err := yaml.Marshal(view)
		if err != nil {
			return errors.Wrap(err, "unable to encode output")
		}
		command.Print(string(encoded))
		return nil
	}

	command.Printf("watches:    %d\n", view.WatchCount)
	command.Printf("clients:    %d\n", view.ClientCount)
	command.Printf("started:    %s\n", view.Uptime)
	command.Printf("dispatched: %d\n", view.EventsDispatched)
	command.Printf("dropped:    %d\n", view.EventsDropped)
	return nil
}

var statusCommand = &cobra.Command{
	Use:   "status",
	Short: "Reports daemon status",
	Run:   mainify(statusMain),
}

var statusConfiguration struct {
	format string
}

func init() {
	statusCommand.Flags().StringVar(&statusConfiguration.format, "format", "table", "output format: table or yaml")
}
