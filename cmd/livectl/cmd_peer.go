package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/d2verb/livectl/internal/peer"
	"github.com/d2verb/livectl/internal/ui"
)

type PeerCmd struct {
	Listen string        `help:"Address to listen on (default: configured host and port)" placeholder:"HOST:PORT"`
	Delay  time.Duration `help:"Delay before every response, e.g. 200ms"`
}

func (c *PeerCmd) Run(g *Globals) error {
	cfg, paths, err := loadConfig(g)
	if err != nil {
		return err
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must not be negative")
	}

	addr := c.Listen
	if addr == "" {
		addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}

	logger, closer := openLog(cfg, paths, paths.PeerLog, "peer")
	defer closer.Close()

	ctx, stop := signalContext()
	defer stop()

	srv := peer.NewServer(peer.NewSession(), peer.Options{
		Addr:   addr,
		Delay:  c.Delay,
		Logger: logger,
	})
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start peer: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Peer listening on %s", srv.Addr()))
	ui.PrintInfo(fmt.Sprintf("Logs: %s", paths.PeerLog))

	<-ctx.Done()
	logger.Info("shutdown signal received")
	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stop peer: %w", err)
	}
	ui.PrintInfo("Peer stopped")
	return nil
}
