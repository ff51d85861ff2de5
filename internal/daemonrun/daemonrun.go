// Package daemonrun holds the daemon startup sequence shared by
// cmd/fakenotify-daemon and the "fakenotify start" administrative
// subcommand: load configuration, acquire the single-instance lock, bind
// the control-plane listener, seed configured watches, and serve until a
// termination signal or a fatal server error.
package daemonrun

import (
	"context"
	"os"
	"os/signal"

	"github.com/pkg/errors"

	"github.com/fakenotify/fakenotify/internal/cmd"
	"github.com/fakenotify/fakenotify/pkg/configuration"
	"github.com/fakenotify/fakenotify/pkg/daemon"
	"github.com/fakenotify/fakenotify/pkg/daemon/registry"
	"github.com/fakenotify/fakenotify/pkg/daemon/server"
	"github.com/fakenotify/fakenotify/pkg/fakenotify"
	"github.com/fakenotify/fakenotify/pkg/housekeeping"
	"github.com/fakenotify/fakenotify/pkg/ipc"
	"github.com/fakenotify/fakenotify/pkg/logging"
)

// Options configures a Run invocation, letting each entry point's own flags
// override the configuration file's values.
type Options struct {
	ConfigPath string
	SocketPath string // overrides config.Daemon.Socket when non-empty
}

// Run loads configuration, starts serving, and blocks until a termination
// signal arrives or the server fails.
func Run(opts Options) error {
	config, err := configuration.Load(opts.ConfigPath)
	if err != nil {
		return errors.Wrap(err, "unable to load configuration")
	}

	socketPath := config.Daemon.Socket
	if opts.SocketPath != "" {
		socketPath = opts.SocketPath
	}

	level, _ := logging.NameToLevel(config.Daemon.LogLevel)
	logger := logging.NewRootLogger(level)
	logger.Infof("fakenotify daemon %s starting (protocol version %d)", fakenotify.Version, fakenotify.ProtocolVersion)

	lock, err := daemon.AcquireLock(logger)
	if err != nil {
		return errors.Wrap(err, "unable to acquire daemon lock")
	}
	defer lock.Release()

	listener, err := ipc.NewListener(socketPath, config.Daemon.SocketGroup)
	if err != nil {
		return errors.Wrap(err, "unable to create daemon listener")
	}
	defer listener.Close()

	srv, err := server.New(listener, config, logger)
	if err != nil {
		return errors.Wrap(err, "unable to construct server")
	}

	watches, err := configuration.ExpandWatchPaths(config.Watch)
	if err != nil {
		return errors.Wrap(err, "unable to expand configured watch paths")
	}
	seedClient := registry.NewBareClient("startup")
	for _, w := range watches {
		if err := srv.SeedWatch(w, seedClient); err != nil {
			logger.Warnf("unable to seed watch on %s: %v", w.Path, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go housekeeping.HousekeepRegularly(ctx, srv.Registry(), logger)

	serverErrors := make(chan error, 1)
	go func() { serverErrors <- srv.Serve(ctx) }()

	signalTermination := make(chan os.Signal, 1)
	signal.Notify(signalTermination, cmd.TerminationSignals...)
	select {
	case sig := <-signalTermination:
		logger.Infof("terminating on signal: %s", sig)
		cancel()
		<-serverErrors
		return nil
	case err := <-serverErrors:
		return errors.Wrap(err, "premature server termination")
	}
}
