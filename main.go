package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/habedi/waconsole/cmd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// main sets up logging from DEBUG_WACONSOLE, listens for interrupts and runs
// the root command.
func main() {
	configureLogLevelFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := setupInterruptListener()
	go handleInterrupt(stopChan, cancel, func(msg string) { log.Warn().Msg(msg) }, os.Exit)

	cmd.Execute(ctx)
}

// configureLogLevelFromEnv enables debug logging when DEBUG_WACONSOLE is set
// to anything but a false value, otherwise disables logging.
func configureLogLevelFromEnv() {
	switch os.Getenv("DEBUG_WACONSOLE") {
	case "", "0", "false":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func setupInterruptListener() chan os.Signal {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	return stopChan
}

// handleInterrupt cancels the running command on the first interrupt and
// exits on the second one.
func handleInterrupt(stopChan chan os.Signal, cancel context.CancelFunc, logMsg func(string), exit func(int)) {
	<-stopChan
	logMsg("Interrupt signal received. Stopping...")
	cancel()
	<-stopChan
	logMsg("Interrupt signal received again. Exiting...")
	exit(1)
}
