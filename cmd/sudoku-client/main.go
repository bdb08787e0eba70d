// The sudoku-client command connects to a multiplayer Sudoku server and plays
// from the terminal. Its log goes to a file since stdout belongs to the game.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/cyberinferno/sudoku-client/config"
	"github.com/cyberinferno/sudoku-client/gameclient"
	"github.com/cyberinferno/sudoku-client/logger"
	"github.com/cyberinferno/sudoku-client/notifier"
	"github.com/cyberinferno/sudoku-client/syncio"
)

func main() {
	fs := pflag.NewFlagSet("sudoku-client", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid log level:", err)
		os.Exit(2)
	}

	log, err := logger.NewZerologFileLogger("sudoku-client", cfg.LogDir, level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot open log file:", err)
		os.Exit(1)
	}

	os.Exit(run(cfg, log))
}

func run(cfg config.Config, log logger.Logger) int {
	defer func() {
		_ = log.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signals)

	queue := notifier.NewQueue()
	gate := syncio.NewGate(syncio.NewTerminalConsole(os.Stdin, os.Stdout), syncio.WithActivation(cfg.Activation))
	client := gameclient.New(cfg, gate, queue, gameclient.SessionDialer(cfg, queue, log), log)

	log.Info("client started", logger.Field{Key: "port", Value: cfg.Port}, logger.Field{Key: "activation", Value: cfg.Activation})

	done := make(chan error, 1)
	go func() {
		done <- client.Play(ctx)
	}()

	for {
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("client stopped with error", logger.Field{Key: "error", Value: err})
				return 1
			}

			log.Info("client exited")
			return 0
		case sig := <-signals:
			if sig == syscall.SIGHUP {
				if err := log.Rotate(); err != nil {
					fmt.Fprintln(os.Stderr, "log rotation failed:", err)
				}
				continue
			}

			// The main loop may be blocked reading stdin; that read is left
			// behind. The gate closes before Stop so no goroutine Stop waits
			// on is parked in Output.
			log.Warn("interrupted", logger.Field{Key: "signal", Value: sig.String()})
			cancel()
			gate.Close(syncio.Both)
			client.Stop()
			fmt.Println("\nInterrupted, disconnecting...")
			return 130
		}
	}
}
