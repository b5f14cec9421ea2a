package main

import (
	"fmt"

	"github.com/d2verb/livectl/internal/client"
	"github.com/d2verb/livectl/internal/ui"
)

type StatusCmd struct{}

func (c *StatusCmd) Run(g *Globals) error {
	r, err := newRemote(g)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, stop := signalContext()
	defer stop()

	info, err := r.client.SessionInfo(ctx)
	if err != nil {
		if client.IsUnavailable(err) {
			ui.PrintStatus(client.StateUnconnected.String(), r.addr, r.paths.ClientLog)
		}
		return mapClientError(err, r.addr)
	}

	ui.PrintStatus(r.client.State().String(), r.addr, r.paths.ClientLog)
	fmt.Fprintln(ui.Output)
	ui.PrintSessionInfo(ui.SessionInfoFromResult(info))
	return nil
}
