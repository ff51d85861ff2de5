package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fakenotify/fakenotify/pkg/protocol"
)

func removeMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return usageErrorf("exactly one path must be specified")
	}
	path := arguments[0]

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

	var wd int32
	var found bool
	for _, r := range records {
		if r.Path == path {
			wd, found = r.Wd, true
			break
		}
	}
	if !found {
		return errors.Errorf("no watch registered for %s", path)
	}

	if err := protocol.WriteFrame(conn, protocol.KindRemove, protocol.EncodeWd(wd)); err != nil {
		return errors.Wrap(err, "unable to send REMOVE request")
	}
	kind, payload, err = protocol.ReadFrame(conn)
	if err != nil {
		return errors.Wrap(err, "unable to read REMOVE response")
	}
	if kind == protocol.KindRemoveErr {
		protoErr, _ := protocol.DecodeErr(payload)
		if protoErr != nil {
			return protoErr
		}
		return errors.New("daemon rejected REMOVE")
	}

	command.Printf("watch %d removed for %s\n", wd, path)
	return nil
}

var removeCommand = &cobra.Command{
	Use:   "remove PATH",
	Short: "Removes the watch on PATH",
	Run:   mainify(removeMain),
}
