package main

import (
	"github.com/d2verb/livectl/internal/ui"
)

type TrackCmd struct {
	Index int `arg:"" help:"Track index (0-based)"`
}

func (c *TrackCmd) Run(g *Globals) error {
	r, err := newRemote(g)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, stop := signalContext()
	defer stop()

	info, err := r.client.TrackInfo(ctx, c.Index)
	if err != nil {
		return mapClientError(err, r.addr)
	}
	ui.PrintTrackDetails(ui.TrackDetailsFromResult(info))
	return nil
}
