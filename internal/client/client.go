// Package client talks to the Live remote script over its TCP JSON protocol.
package client

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/d2verb/livectl/internal/protocol"
)

// Client dispatches commands over the Manager's shared connection.
type Client struct {
	mgr        *Manager
	classifier protocol.Classifier
	log        *slog.Logger
}

// New creates a Client. Nothing is dialed until Connect or the first Send.
func New(opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		mgr:        NewManager(opts),
		classifier: *opts.Classifier,
		log:        opts.Logger,
	}
}

// Connect establishes and validates the shared connection ahead of use.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.mgr.Get(ctx)
	return err
}

// Close disconnects from the peer.
func (c *Client) Close() {
	c.mgr.Close()
}

// State returns the state of the shared connection.
func (c *Client) State() State {
	conn := c.mgr.Current()
	if conn == nil {
		return StateUnconnected
	}
	return conn.State()
}

// Classify returns the class the client applies to a command name.
func (c *Client) Classify(command string) protocol.Class {
	return c.classifier.Classify(command)
}

// Send dispatches one command and returns the peer's result map.
// Errors are *Error; use IsPeerError to tell a rejected command from a
// broken channel.
func (c *Client) Send(ctx context.Context, command string, params map[string]any) (map[string]any, error) {
	log := c.log.With(
		"cmd_id", uuid.NewString(),
		"command", command,
		"class", c.classifier.Classify(command).String(),
	)

	conn, err := c.mgr.Get(ctx)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Command = command
		}
		log.Error("no connection", "error", err)
		return nil, err
	}

	start := time.Now()
	log.Debug("sending command", "params", len(params))
	result, err := conn.send(ctx, log, command, params)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		log.Info("command completed", "elapsed", elapsed)
	case IsPeerError(err):
		log.Warn("peer rejected command", "elapsed", elapsed, "error", err)
	default:
		log.Error("command failed", "elapsed", elapsed, "kind", KindOf(err).String(), "error", err)
	}
	return result, err
}

// SessionInfo returns the session overview.
func (c *Client) SessionInfo(ctx context.Context) (map[string]any, error) {
	return c.Send(ctx, protocol.CmdGetSessionInfo, nil)
}

// TrackInfo returns details of one track.
func (c *Client) TrackInfo(ctx context.Context, trackIndex int) (map[string]any, error) {
	return c.Send(ctx, protocol.CmdGetTrackInfo, map[string]any{
		"track_index": trackIndex,
	})
}

// SetTempo sets the session tempo in BPM.
func (c *Client) SetTempo(ctx context.Context, bpm float64) (map[string]any, error) {
	return c.Send(ctx, protocol.CmdSetTempo, map[string]any{
		"tempo": bpm,
	})
}

// StartPlayback starts the transport.
func (c *Client) StartPlayback(ctx context.Context) (map[string]any, error) {
	return c.Send(ctx, protocol.CmdStartPlayback, nil)
}

// StopPlayback stops the transport.
func (c *Client) StopPlayback(ctx context.Context) (map[string]any, error) {
	return c.Send(ctx, protocol.CmdStopPlayback, nil)
}

// CreateMIDITrack inserts a MIDI track at index (-1 appends).
func (c *Client) CreateMIDITrack(ctx context.Context, index int) (map[string]any, error) {
	return c.Send(ctx, protocol.CmdCreateMIDITrack, map[string]any{
		"index": index,
	})
}

// SetTrackName renames a track.
func (c *Client) SetTrackName(ctx context.Context, trackIndex int, name string) (map[string]any, error) {
	return c.Send(ctx, protocol.CmdSetTrackName, map[string]any{
		"track_index": trackIndex,
		"name":        name,
	})
}

// CreateClip creates an empty MIDI clip of length beats.
func (c *Client) CreateClip(ctx context.Context, trackIndex, clipIndex int, length float64) (map[string]any, error) {
	return c.Send(ctx, protocol.CmdCreateClip, map[string]any{
		"track_index": trackIndex,
		"clip_index":  clipIndex,
		"length":      length,
	})
}

// AddNotesToClip adds notes to an existing clip.
func (c *Client) AddNotesToClip(ctx context.Context, trackIndex, clipIndex int, notes []protocol.Note) (map[string]any, error) {
	wire := make([]any, len(notes))
	for i, n := range notes {
		wire[i] = n.Params()
	}
	return c.Send(ctx, protocol.CmdAddNotesToClip, map[string]any{
		"track_index": trackIndex,
		"clip_index":  clipIndex,
		"notes":       wire,
	})
}

// FireClip launches a clip.
func (c *Client) FireClip(ctx context.Context, trackIndex, clipIndex int) (map[string]any, error) {
	return c.Send(ctx, protocol.CmdFireClip, clipParams(trackIndex, clipIndex))
}

// StopClip stops a clip.
func (c *Client) StopClip(ctx context.Context, trackIndex, clipIndex int) (map[string]any, error) {
	return c.Send(ctx, protocol.CmdStopClip, clipParams(trackIndex, clipIndex))
}

func clipParams(trackIndex, clipIndex int) map[string]any {
	return map[string]any{
		"track_index": trackIndex,
		"clip_index":  clipIndex,
	}
}
