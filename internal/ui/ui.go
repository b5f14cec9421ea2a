// Package ui provides formatted output utilities for the CLI.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
)

// Color functions for consistent styling.
var (
	Green  = color.New(color.FgGreen).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
	Dim    = color.New(color.Faint).SprintFunc() // Dimmed text (more readable than gray)
	Bold   = color.New(color.Bold).SprintFunc()
)

// Output is the destination for UI output.
// Defaults to os.Stdout but can be overridden for testing.
var Output io.Writer = os.Stdout

// ConnectionBadge returns a colored connection indicator with label.
func ConnectionBadge(state string) string {
	switch state {
	case "connected":
		return Green("● Connected")
	case "stale":
		return Yellow("◐ Stale")
	default:
		return Red("○ Not Connected")
	}
}

// PlayingBadge returns the transport state of the Live set.
func PlayingBadge(playing bool) string {
	if playing {
		return Green("▶ Playing")
	}
	return Dim("■ Stopped")
}

// PrintStatus prints the connection state of the remote script.
func PrintStatus(state, addr, logPath string) {
	fmt.Fprintf(Output, "%s %s\n", Bold("Status:"), ConnectionBadge(state))
	fmt.Fprintf(Output, "%s %s\n", Bold("Endpoint:"), Blue(addr))
	if logPath != "" {
		fmt.Fprintf(Output, "%s %s\n", Bold("Logs:"), logPath)
	}
}

// SessionInfo is the result of get_session_info prepared for display.
type SessionInfo struct {
	Tempo       float64
	Numerator   int
	Denominator int
	TrackCount  int
	Playing     bool
}

// SessionInfoFromResult reads a get_session_info result. Missing keys stay zero.
func SessionInfoFromResult(r map[string]any) SessionInfo {
	return SessionInfo{
		Tempo:       number(r["tempo"]),
		Numerator:   int(number(r["signature_numerator"])),
		Denominator: int(number(r["signature_denominator"])),
		TrackCount:  int(number(r["track_count"])),
		Playing:     r["is_playing"] == true,
	}
}

// PrintSessionInfo prints session details in a formatted style.
func PrintSessionInfo(s SessionInfo) {
	fmt.Fprintf(Output, "%s %s\n", Bold("Transport:"), PlayingBadge(s.Playing))
	fmt.Fprintf(Output, "%s %s\n", Bold("Tempo:"), Cyan(fmt.Sprintf("%g BPM", s.Tempo)))
	if s.Numerator > 0 && s.Denominator > 0 {
		fmt.Fprintf(Output, "%s %d/%d\n", Bold("Signature:"), s.Numerator, s.Denominator)
	}
	fmt.Fprintf(Output, "%s %d\n", Bold("Tracks:"), s.TrackCount)
}

// ClipSlot is one clip slot of a track.
type ClipSlot struct {
	Index     int
	HasClip   bool
	ClipName  string
	Length    float64
	NoteCount int
	Playing   bool
}

// TrackDetails is the result of get_track_info prepared for display.
type TrackDetails struct {
	Index  int
	Name   string
	Kind   string
	Mute   bool
	Volume float64
	Slots  []ClipSlot
}

// TrackDetailsFromResult reads a get_track_info result.
func TrackDetailsFromResult(r map[string]any) TrackDetails {
	d := TrackDetails{
		Index:  int(number(r["index"])),
		Name:   text(r["name"]),
		Mute:   r["mute"] == true,
		Volume: number(r["volume"]),
	}
	switch {
	case r["is_midi_track"] == true:
		d.Kind = "MIDI"
	case r["is_audio_track"] == true:
		d.Kind = "Audio"
	}

	slots, _ := r["clip_slots"].([]any)
	for i, raw := range slots {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		slot := ClipSlot{Index: i, HasClip: m["has_clip"] == true}
		if idx, ok := m["index"].(float64); ok {
			slot.Index = int(idx)
		}
		if clip, ok := m["clip"].(map[string]any); ok {
			slot.ClipName = text(clip["name"])
			slot.Length = number(clip["length"])
			slot.NoteCount = int(number(clip["note_count"]))
			slot.Playing = clip["is_playing"] == true
		}
		d.Slots = append(d.Slots, slot)
	}
	return d
}

// PrintTrackDetails prints a track and its filled clip slots.
func PrintTrackDetails(d TrackDetails) {
	fmt.Fprintf(Output, "%s %s %s\n", Bold("Track:"), Cyan(d.Name), Dim(fmt.Sprintf("#%d", d.Index)))
	if d.Kind != "" {
		fmt.Fprintf(Output, "%s %s\n", Bold("Type:"), d.Kind)
	}
	if d.Mute {
		fmt.Fprintf(Output, "%s %s\n", Bold("Mute:"), Yellow("on"))
	}
	fmt.Fprintf(Output, "%s %.2f\n", Bold("Volume:"), d.Volume)

	var clips []ClipSlot
	for _, s := range d.Slots {
		if s.HasClip {
			clips = append(clips, s)
		}
	}
	if len(clips) == 0 {
		fmt.Fprintln(Output, "No clips.")
		return
	}
	fmt.Fprintln(Output, Bold("Clips:"))
	for _, s := range clips {
		name := s.ClipName
		if name == "" {
			name = Dim("(unnamed)")
		}
		line := fmt.Sprintf("  [%d] %s %s", s.Index, name, Dim(fmt.Sprintf("(%g beats, %d notes)", s.Length, s.NoteCount)))
		if s.Playing {
			line += " " + Green("▶")
		}
		fmt.Fprintln(Output, line)
	}
}

// CommandInfo describes a command for the commands listing.
type CommandInfo struct {
	Name     string
	Modifies bool
}

// PrintCommandList prints commands with their timeout class.
func PrintCommandList(cmds []CommandInfo) {
	if len(cmds) == 0 {
		fmt.Fprintln(Output, "No commands known.")
		return
	}

	width := 0
	for _, c := range cmds {
		width = max(width, len(c.Name))
	}
	fmt.Fprintln(Output, Bold("Commands:"))
	for _, c := range cmds {
		class := Dim("read")
		if c.Modifies {
			class = Yellow("modify")
		}
		fmt.Fprintf(Output, "  %-*s  %s\n", width, c.Name, class)
	}
}

// PrintResult prints a command result as indented JSON with sorted keys.
func PrintResult(result map[string]any) error {
	if len(result) == 0 {
		fmt.Fprintln(Output, Dim("{}"))
		return nil
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("format result: %w", err)
	}
	fmt.Fprintln(Output, string(data))
	return nil
}

// PrintFields prints the top-level scalar fields of a result, one per line.
func PrintFields(result map[string]any) {
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(Output, "%s %v\n", Bold(k+":"), result[k])
	}
}

// PrintSuccess prints a success message with green checkmark.
func PrintSuccess(message string) {
	fmt.Fprintf(Output, "%s %s\n", Green("✓"), message)
}

// PrintError prints an error message with red X.
func PrintError(message string) {
	fmt.Fprintf(Output, "%s %s\n", Red("✗"), message)
}

// PrintWarning prints a warning message with yellow exclamation.
func PrintWarning(message string) {
	fmt.Fprintf(Output, "%s %s\n", Yellow("⚠"), message)
}

// PrintInfo prints an info message with blue dot.
func PrintInfo(message string) {
	fmt.Fprintf(Output, "%s %s\n", Blue("•"), message)
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

func text(v any) string {
	s, _ := v.(string)
	return s
}
