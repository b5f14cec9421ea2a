package main

import (
	"fmt"

	"github.com/d2verb/livectl/internal/ui"
)

type TempoCmd struct {
	BPM float64 `arg:"" name:"bpm" help:"Tempo in beats per minute"`
}

func (c *TempoCmd) Run(g *Globals) error {
	if c.BPM <= 0 {
		return fmt.Errorf("tempo must be positive, got %g", c.BPM)
	}

	r, err := newRemote(g)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, stop := signalContext()
	defer stop()

	if _, err := r.client.SetTempo(ctx, c.BPM); err != nil {
		return mapClientError(err, r.addr)
	}
	ui.PrintSuccess(fmt.Sprintf("Tempo set to %g BPM", c.BPM))
	return nil
}
