// Package protocol defines the JSON protocol spoken with the Live remote script.
package protocol

import (
	"errors"
	"fmt"
	"maps"
)

// Command is one request sent to the peer.
type Command struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// Response is the peer's answer to exactly one Command.
type Response struct {
	Status  string         `json:"status"` // "success" or "error"
	Result  map[string]any `json:"result,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Command names
const (
	CmdGetSessionInfo         = "get_session_info"
	CmdGetTrackInfo           = "get_track_info"
	CmdGetBrowserTree         = "get_browser_tree"
	CmdGetBrowserItemsAtPath  = "get_browser_items_at_path"
	CmdCreateMIDITrack        = "create_midi_track"
	CmdCreateAudioTrack       = "create_audio_track"
	CmdCreateReturnTrack      = "create_return_track"
	CmdSetTrackName           = "set_track_name"
	CmdSetTrackVolume         = "set_track_volume"
	CmdSetTrackMuted          = "set_track_muted"
	CmdCreateClip             = "create_clip"
	CmdAddNotesToClip         = "add_notes_to_clip"
	CmdSetClipName            = "set_clip_name"
	CmdSetTempo               = "set_tempo"
	CmdSetKey                 = "set_key"
	CmdFireClip               = "fire_clip"
	CmdStopClip               = "stop_clip"
	CmdStartPlayback          = "start_playback"
	CmdStopPlayback           = "stop_playback"
	CmdSetDeviceParameter     = "set_device_parameter"
	CmdLoadInstrumentOrEffect = "load_instrument_or_effect"
	CmdLoadBrowserItem        = "load_browser_item"
	CmdCreateLocator          = "create_locator"
	CmdClearLocators          = "clear_locators"
)

// Status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrInvalidResponse is wrapped by Response.Validate failures.
var ErrInvalidResponse = errors.New("invalid response")

// NewCommand creates a command with a private copy of params.
// Nil params are sent as an empty object.
func NewCommand(cmdType string, params map[string]any) *Command {
	p := make(map[string]any, len(params))
	maps.Copy(p, params)
	return &Command{
		Type:   cmdType,
		Params: p,
	}
}

// NewSuccessResponse creates a successful response with a result.
func NewSuccessResponse(result map[string]any) *Response {
	if result == nil {
		result = map[string]any{}
	}
	return &Response{
		Status: StatusSuccess,
		Result: result,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  StatusError,
		Message: message,
	}
}

// Validate checks the status field. Result is only meaningful on success.
func (r *Response) Validate() error {
	switch r.Status {
	case StatusSuccess, StatusError:
		return nil
	case "":
		return fmt.Errorf("%w: missing status", ErrInvalidResponse)
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidResponse, r.Status)
	}
}

// IsError reports whether the peer rejected the command.
func (r *Response) IsError() bool {
	return r.Status == StatusError
}

// Note is one MIDI note as carried by add_notes_to_clip.
type Note struct {
	Pitch     int     `json:"pitch"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
	Velocity  int     `json:"velocity"`
	Mute      bool    `json:"mute"`
}

// Params converts the note to its wire map.
func (n Note) Params() map[string]any {
	return map[string]any{
		"pitch":      n.Pitch,
		"start_time": n.StartTime,
		"duration":   n.Duration,
		"velocity":   n.Velocity,
		"mute":       n.Mute,
	}
}
