package protocol

import (
	"maps"
	"slices"
)

// Class selects the timeout and settle policy for a command.
type Class int

const (
	// ClassRead commands only query the peer.
	ClassRead Class = iota
	// ClassModify commands change session state and get settle delays.
	ClassModify
)

func (c Class) String() string {
	switch c {
	case ClassModify:
		return "modify"
	default:
		return "read"
	}
}

// modifyingCommands is the explicit registry of state-changing commands.
// Unknown names are classified as reads.
var modifyingCommands = []string{
	CmdCreateMIDITrack,
	CmdCreateAudioTrack,
	CmdSetTrackName,
	CmdCreateClip,
	CmdAddNotesToClip,
	CmdSetClipName,
	CmdSetTempo,
	CmdFireClip,
	CmdStopClip,
	CmdSetDeviceParameter,
	CmdStartPlayback,
	CmdStopPlayback,
	CmdLoadInstrumentOrEffect,
	CmdLoadBrowserItem,
	CmdCreateReturnTrack,
	CmdSetTrackVolume,
	CmdSetTrackMuted,
	CmdCreateLocator,
	CmdClearLocators,
	CmdSetKey,
}

// readCommands are the known query commands, listed for completion and help.
var readCommands = []string{
	CmdGetSessionInfo,
	CmdGetTrackInfo,
	CmdGetBrowserTree,
	CmdGetBrowserItemsAtPath,
}

// Classifier maps command names to a Class. The zero value classifies
// everything as a read; use DefaultClassifier.
type Classifier struct {
	modifying map[string]struct{}
}

// DefaultClassifier returns the built-in registry.
func DefaultClassifier() Classifier {
	c := Classifier{modifying: make(map[string]struct{}, len(modifyingCommands))}
	for _, name := range modifyingCommands {
		c.modifying[name] = struct{}{}
	}
	return c
}

// WithModifying returns a copy of c that also treats names as modifying.
func (c Classifier) WithModifying(names ...string) Classifier {
	out := Classifier{modifying: make(map[string]struct{}, len(c.modifying)+len(names))}
	maps.Copy(out.modifying, c.modifying)
	for _, name := range names {
		out.modifying[name] = struct{}{}
	}
	return out
}

// Classify returns the class of a command name.
func (c Classifier) Classify(name string) Class {
	if _, ok := c.modifying[name]; ok {
		return ClassModify
	}
	return ClassRead
}

// Modifying returns the registered modifying names, sorted.
func (c Classifier) Modifying() []string {
	return slices.Sorted(maps.Keys(c.modifying))
}

// KnownCommands returns every built-in command name, sorted.
func KnownCommands() []string {
	names := slices.Concat(readCommands, modifyingCommands)
	slices.Sort(names)
	return names
}
