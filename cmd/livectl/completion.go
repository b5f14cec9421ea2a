package main

import (
	"strings"

	"github.com/posener/complete"

	"github.com/d2verb/livectl/internal/protocol"
)

// commandPredictor completes command names for 'send'.
type commandPredictor struct {
	names []string
}

func newCommandPredictor() complete.Predictor {
	return &commandPredictor{names: protocol.KnownCommands()}
}

// Predict implements complete.Predictor interface.
func (p *commandPredictor) Predict(args complete.Args) []string {
	results := make([]string, 0, len(p.names))
	for _, name := range p.names {
		if strings.HasPrefix(name, args.Last) {
			results = append(results, name)
		}
	}
	return results
}
