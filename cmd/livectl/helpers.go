package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/d2verb/livectl/internal/client"
	"github.com/d2verb/livectl/internal/config"
	"github.com/d2verb/livectl/internal/logging"
	"github.com/d2verb/livectl/internal/ui"
)

func getPaths() (*config.Paths, error) {
	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("get paths: %w", err)
	}
	return paths, nil
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(g *Globals) (*config.Config, *config.Paths, error) {
	paths, err := getPaths()
	if err != nil {
		return nil, nil, err
	}

	path := g.Config
	if path == "" {
		path = paths.Config
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	if g.Host != "" {
		cfg.Host = g.Host
	}
	if g.Port != 0 {
		cfg.Port = g.Port
	}
	if g.Debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, paths, nil
}

// openLog creates the livectl directories and opens the rotating log at path.
// If either fails the command still runs, without a log.
func openLog(cfg *config.Config, paths *config.Paths, path, component string) (*slog.Logger, io.Closer) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		ui.PrintWarning(fmt.Sprintf("%v, using info", err))
	}
	if err := paths.EnsureDirectories(); err != nil {
		ui.PrintWarning(fmt.Sprintf("Logging disabled: create directories: %v", err))
		return logging.Discard(), io.NopCloser(nil)
	}
	logger, closer, err := logging.Open(logging.DefaultConfig(path), level, component)
	if err != nil {
		ui.PrintWarning(fmt.Sprintf("Logging disabled: %v", err))
		return logging.Discard(), io.NopCloser(nil)
	}
	return logger, closer
}

// remote is a client bound to the configured peer address.
type remote struct {
	client *client.Client
	addr   string
	paths  *config.Paths
	log    io.Closer
}

func newRemote(g *Globals) (*remote, error) {
	cfg, paths, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	logger, closer := openLog(cfg, paths, paths.ClientLog, "client")
	opts := cfg.ClientOptions()
	opts.Logger = logger
	return &remote{
		client: client.New(opts),
		addr:   opts.Addr(),
		paths:  paths,
		log:    closer,
	}, nil
}

func (r *remote) Close() {
	r.client.Close()
	r.log.Close()
}

// send dispatches one command and maps failures to exit errors.
func (r *remote) send(ctx context.Context, command string, params map[string]any) (map[string]any, error) {
	result, err := r.client.Send(ctx, command, params)
	if err != nil {
		return nil, mapClientError(err, r.addr)
	}
	return result, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
