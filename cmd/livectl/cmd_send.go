package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/d2verb/livectl/internal/ui"
)

type SendCmd struct {
	Command string   `arg:"" help:"Command name, e.g. get_session_info" predictor:"command"`
	Params  string   `arg:"" optional:"" help:"Parameters as a JSON object"`
	Param   []string `short:"p" sep:"none" help:"Parameter as key=value; repeatable. Values are JSON when they parse, strings otherwise" placeholder:"KEY=VALUE"`
}

func (c *SendCmd) Run(g *Globals) error {
	params, err := buildParams(c.Params, c.Param)
	if err != nil {
		return err
	}

	r, err := newRemote(g)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, stop := signalContext()
	defer stop()

	result, err := r.send(ctx, c.Command, params)
	if err != nil {
		return err
	}
	return ui.PrintResult(result)
}

// buildParams merges a JSON object with key=value pairs. Pairs win.
func buildParams(raw string, pairs []string) (map[string]any, error) {
	params := make(map[string]any)
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return nil, fmt.Errorf("params must be a JSON object: %w", err)
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", pair)
		}
		params[key] = parseParamValue(value)
	}
	return params, nil
}

// parseParamValue decodes value as JSON, falling back to the raw string.
func parseParamValue(value string) any {
	var v any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return value
	}
	return v
}
