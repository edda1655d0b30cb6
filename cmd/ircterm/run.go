package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/drake/ircterm/config"
	"github.com/drake/ircterm/debug"
	"github.com/drake/ircterm/internal/logger"
	"github.com/drake/ircterm/network"
	"github.com/drake/ircterm/session"
	"github.com/drake/ircterm/ui"
)

const (
	dialTimeout = 15 * time.Second
	keepAlive   = 30 * time.Second
)

// run connects, drives one session to completion and reports its outcome.
func run(ctx context.Context, cfg config.Config) error {
	log, closer, err := logger.New("ircterm", cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer closer.Close()

	addr, err := network.ParseAddress(cfg.Host, cfg.Port, cfg.TLS)
	if err != nil {
		return err
	}

	opts := network.Options{
		AutoPong:  !cfg.NoPing,
		SendRate:  cfg.SendRate,
		SendBurst: cfg.SendBurst,
		Logger:    log,
	}
	if cfg.TrafficLog != "" {
		traffic, err := logger.NewTrafficLog(cfg.TrafficLog)
		if err != nil {
			return fmt.Errorf("opening traffic log: %w", err)
		}
		defer traffic.Close()
		opts.Traffic = traffic
	}

	log.Info().Stringer("addr", addr).Msg("connecting")
	conn, err := network.Dial(ctx, addr, network.DialOptions{
		NoVerify:  cfg.NoVerify,
		CertFile:  cfg.Cert,
		Timeout:   dialTimeout,
		KeepAlive: keepAlive,
	})
	if err != nil {
		log.Error().Err(err).Stringer("addr", addr).Msg("connect failed")
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}

	// The session reaches the queue only through the driver.
	client := network.NewClient(conn, network.NewQueue(), opts)
	client.Start()

	var front ui.UI
	if cfg.Simple {
		front = ui.NewConsoleUI(os.Stdin, os.Stdout)
	} else {
		front = ui.NewBubbleTeaUI()
	}
	front.SetAddress(addr.String())

	uiErr := make(chan error, 1)
	go func() { uiErr <- front.Run() }()

	sess := session.New(client, front, session.Config{
		DrainTimeout: cfg.DrainTimeout,
		Logger:       log,
	})

	monCtx, stopMonitor := context.WithCancel(ctx)
	debug.NewMonitor(monCtx, cfg.Debug, log, sess, client).Start()

	runErr := sess.Run(ctx)
	stopMonitor()

	front.Quit()
	if err := <-uiErr; err != nil {
		log.Warn().Err(err).Msg("ui exited with error")
	}

	stats := client.Stats()
	log.Info().
		Stringer("state", sess.State()).
		Uint64("lines_read", stats.LinesRead).
		Uint64("lines_written", stats.LinesWritten).
		Msg("session finished")

	if runErr != nil {
		return fmt.Errorf("connection to %s: %w", addr, runErr)
	}
	return nil
}
