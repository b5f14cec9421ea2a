package main

import (
	"slices"

	"github.com/d2verb/livectl/internal/client"
	"github.com/d2verb/livectl/internal/protocol"
	"github.com/d2verb/livectl/internal/ui"
)

type CommandsCmd struct{}

func (c *CommandsCmd) Run(g *Globals) error {
	cfg, _, err := loadConfig(g)
	if err != nil {
		return err
	}

	// Nothing is dialed; the client only supplies its classification.
	cl := client.New(cfg.ClientOptions())
	defer cl.Close()

	ui.PrintCommandList(commandInfos(cl.Classify, cfg.ExtraModifyingCommands))
	return nil
}

// commandInfos lists the known commands plus any configured extras, sorted,
// each marked with the class classify assigns it.
func commandInfos(classify func(string) protocol.Class, extra []string) []ui.CommandInfo {
	names := protocol.KnownCommands()
	for _, name := range extra {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	infos := make([]ui.CommandInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, ui.CommandInfo{
			Name:     name,
			Modifies: classify(name) == protocol.ClassModify,
		})
	}
	return infos
}
