package main

import (
	"context"

	"github.com/d2verb/livectl/internal/client"
	"github.com/d2verb/livectl/internal/ui"
)

type PlayCmd struct{}

func (c *PlayCmd) Run(g *Globals) error {
	return transport(g, (*client.Client).StartPlayback, "Playback started")
}

type StopCmd struct{}

func (c *StopCmd) Run(g *Globals) error {
	return transport(g, (*client.Client).StopPlayback, "Playback stopped")
}

func transport(g *Globals, call func(*client.Client, context.Context) (map[string]any, error), done string) error {
	r, err := newRemote(g)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, stop := signalContext()
	defer stop()

	if _, err := call(r.client, ctx); err != nil {
		return mapClientError(err, r.addr)
	}
	ui.PrintSuccess(done)
	return nil
}
