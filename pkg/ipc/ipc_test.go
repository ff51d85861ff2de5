package ipc

import (
	"context"
	"encoding/gob"
	"path/filepath"
	"testing"

	"github.com/fakenotify/fakenotify/pkg/logging"
	"github.com/fakenotify/fakenotify/pkg/must"
)

// TestDialTimeoutNoEndpoint tests that DialContext fails if there is no
// endpoint at the specified path.
func TestDialTimeoutNoEndpoint(t *testing.T) {
	logger := logging.NewRootLogger(logging.LevelError)

	endpoint := filepath.Join(t.TempDir(), "test.sock")

	if c, err := DialContext(context.Background(), endpoint); err == nil {
		must.Close(c, logger)
		t.Error("IPC connection succeeded unexpectedly")
	}
}

// testIPCMessage is a structure used to test IPC messaging.
type testIPCMessage struct {
	Name string
	Age  uint
}

// TestIPC tests that an IPC connection can be established between a
// listener and a dialer.
func TestIPC(t *testing.T) {
	logger := logging.NewRootLogger(logging.LevelError)

	expected := testIPCMessage{"George", 67}

	endpoint := filepath.Join(t.TempDir(), "test.sock")

	listener, err := NewListener(endpoint, "")
	if err != nil {
		t.Fatal("unable to create listener:", err)
	}
	defer must.Close(listener, logger)

	go func() {
		connection, err := DialContext(context.Background(), endpoint)
		if err != nil {
			return
		}
		defer must.Close(connection, logger)

		encoder := gob.NewEncoder(connection)
		if err := encoder.Encode(expected); err != nil {
			logger.Warnf("unable to send test message: %s", err.Error())
		}
	}()

	connection, err := listener.Accept()
	if err != nil {
		t.Fatal("unable to accept connection:", err)
	}
	defer must.Close(connection, logger)

	decoder := gob.NewDecoder(connection)

	var received testIPCMessage
	if err := decoder.Decode(&received); err != nil {
		t.Fatal("unable to receive test message:", err)
	} else if received != expected {
		t.Error("received message does not match expected:", received, "!=", expected)
	}
}
