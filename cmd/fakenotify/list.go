package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fakenotify/fakenotify/pkg/protocol"
)

type watchRecordView struct {
	Wd           int32  `yaml:"wd"`
	Path         string `yaml:"path"`
	Recursive    bool   `yaml:"recursive"`
	PollInterval string `yaml:"poll_interval"`
}

func listMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 0 {
		return usageErrorf("unexpected arguments provided")
	}

	conn, err := dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := protocol.WriteFrame(conn, protocol.KindList, nil); err != nil {
		return errors.Wrap(err, "unable to send LIST request")
	}
	kind, payload, err := protocol.ReadFrame(conn)
	if err != nil || kind != protocol.KindListResp {
		return errors.Wrap(err, "unable to read LIST response")
	}
	records, err := protocol.DecodeListResp(payload)
	if err != nil {
		return errors.Wrap(err, "unable to decode LIST response")
	}

	views := make([]watchRecordView, len(records))
	for i, r := range records {
		views[i] = watchRecordView{
			Wd:           r.Wd,
			Path:         r.Path,
			Recursive:    r.Recursive,
			PollInterval: fmt.Sprintf("%dms", r.PollIntervalMs),
		}
	}

	if listConfiguration.format == "yaml" {
		encoded, err := yaml.Marshal(views)
		if err != nil {
			return errors.Wrap(err, "unable to encode output")
		}
		command.Print(string(encoded))
		return nil
	}

	for _, v := range views {
		command.Printf("%-4d %-8v %-8s %s\n", v.Wd, v.Recursive, v.PollInterval, v.Path)
	}
	return nil
}

var listCommand = &cobra.Command{
	Use:   "list",
	Short: "Lists active watches",
	Run:   mainify(listMain),
}

var listConfiguration struct {
	format string
}

func init() {
	listCommand.Flags().StringVar(&listConfiguration.format, "format", "table", "output format: table or yaml")
}
