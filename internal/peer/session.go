// Package peer implements an in-memory stand-in for the Live remote script.
//
// It speaks the same TCP JSON protocol and keeps a small session model
// (tempo, tracks, clip slots, notes, transport) so the client and CLI can be
// exercised without a running Live instance.
package peer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/d2verb/livectl/internal/protocol"
)

// DefaultClipSlots is the number of clip slots on every new track.
const DefaultClipSlots = 8

var (
	errTrackRange = errors.New("Track index out of range")
	errClipRange  = errors.New("Clip index out of range")
	errSlotFull   = errors.New("Clip slot already has a clip")
	errSlotEmpty  = errors.New("No clip in slot")
)

// Track is one track in the emulated session.
type Track struct {
	Name   string
	Kind   string // "midi" or "audio"
	Mute   bool
	Volume float64
	Slots  []*Clip // nil entries are empty slots
}

// Clip is a MIDI clip in a slot.
type Clip struct {
	Name    string
	Length  float64
	Notes   []protocol.Note
	Playing bool
}

// Session is the emulated session state. Commands are applied one at a time.
type Session struct {
	mu sync.Mutex

	tempo       float64
	numerator   int
	denominator int
	playing     bool
	tracks      []*Track
}

// NewSession returns an empty 120 BPM, 4/4 session.
func NewSession() *Session {
	return &Session{
		tempo:       120,
		numerator:   4,
		denominator: 4,
	}
}

// Handle applies one command and returns its response.
func (s *Session) Handle(cmd protocol.Command) *protocol.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		result map[string]any
		err    error
	)
	p := params(cmd.Params)

	switch cmd.Type {
	case protocol.CmdGetSessionInfo:
		result = s.sessionInfo()
	case protocol.CmdGetTrackInfo:
		result, err = s.trackInfo(p)
	case protocol.CmdCreateMIDITrack:
		result, err = s.createTrack(p, "midi")
	case protocol.CmdCreateAudioTrack:
		result, err = s.createTrack(p, "audio")
	case protocol.CmdSetTrackName:
		result, err = s.setTrackName(p)
	case protocol.CmdCreateClip:
		result, err = s.createClip(p)
	case protocol.CmdAddNotesToClip:
		result, err = s.addNotes(p)
	case protocol.CmdSetClipName:
		result, err = s.setClipName(p)
	case protocol.CmdSetTempo:
		result, err = s.setTempo(p)
	case protocol.CmdFireClip:
		result, err = s.setClipPlaying(p, true)
	case protocol.CmdStopClip:
		result, err = s.setClipPlaying(p, false)
	case protocol.CmdStartPlayback:
		s.playing = true
		result = map[string]any{"playing": true}
	case protocol.CmdStopPlayback:
		s.playing = false
		result = map[string]any{"playing": false}
	default:
		return protocol.NewErrorResponse("Unknown command: " + cmd.Type)
	}

	if err != nil {
		return protocol.NewErrorResponse(err.Error())
	}
	return protocol.NewSuccessResponse(result)
}

func (s *Session) sessionInfo() map[string]any {
	return map[string]any{
		"tempo":                 s.tempo,
		"signature_numerator":   s.numerator,
		"signature_denominator": s.denominator,
		"track_count":           len(s.tracks),
		"is_playing":            s.playing,
	}
}

func (s *Session) trackInfo(p params) (map[string]any, error) {
	idx, track, err := s.track(p)
	if err != nil {
		return nil, err
	}

	slots := make([]map[string]any, len(track.Slots))
	for i, clip := range track.Slots {
		slot := map[string]any{"index": i, "has_clip": clip != nil}
		if clip != nil {
			slot["clip"] = map[string]any{
				"name":       clip.Name,
				"length":     clip.Length,
				"is_playing": clip.Playing,
				"note_count": len(clip.Notes),
			}
		}
		slots[i] = slot
	}

	return map[string]any{
		"index":          idx,
		"name":           track.Name,
		"is_audio_track": track.Kind == "audio",
		"is_midi_track":  track.Kind == "midi",
		"mute":           track.Mute,
		"volume":         track.Volume,
		"clip_slots":     slots,
	}, nil
}

func (s *Session) createTrack(p params, kind string) (map[string]any, error) {
	index, err := p.integerOr("index", -1)
	if err != nil {
		return nil, err
	}
	if index < -1 || index > len(s.tracks) {
		return nil, errTrackRange
	}
	if index == -1 {
		index = len(s.tracks)
	}

	name := fmt.Sprintf("%d-%s", index+1, map[string]string{"midi": "MIDI", "audio": "Audio"}[kind])
	track := &Track{
		Name:   name,
		Kind:   kind,
		Volume: 0.85,
		Slots:  make([]*Clip, DefaultClipSlots),
	}
	s.tracks = append(s.tracks, nil)
	copy(s.tracks[index+1:], s.tracks[index:])
	s.tracks[index] = track

	return map[string]any{"index": index, "name": name}, nil
}

func (s *Session) setTrackName(p params) (map[string]any, error) {
	_, track, err := s.track(p)
	if err != nil {
		return nil, err
	}
	name, err := p.text("name")
	if err != nil {
		return nil, err
	}
	track.Name = name
	return map[string]any{"name": name}, nil
}

func (s *Session) createClip(p params) (map[string]any, error) {
	track, slot, err := s.slot(p)
	if err != nil {
		return nil, err
	}
	if track.Slots[slot] != nil {
		return nil, errSlotFull
	}
	length, err := p.numberOr("length", 4)
	if err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, errors.New("Clip length must be positive")
	}
	track.Slots[slot] = &Clip{Length: length}
	return map[string]any{"name": "", "length": length}, nil
}

func (s *Session) addNotes(p params) (map[string]any, error) {
	clip, err := s.clip(p)
	if err != nil {
		return nil, err
	}
	notes, err := p.notes("notes")
	if err != nil {
		return nil, err
	}
	clip.Notes = append(clip.Notes, notes...)
	return map[string]any{"note_count": len(notes)}, nil
}

func (s *Session) setClipName(p params) (map[string]any, error) {
	clip, err := s.clip(p)
	if err != nil {
		return nil, err
	}
	name, err := p.text("name")
	if err != nil {
		return nil, err
	}
	clip.Name = name
	return map[string]any{"name": name}, nil
}

func (s *Session) setTempo(p params) (map[string]any, error) {
	tempo, err := p.number("tempo")
	if err != nil {
		return nil, err
	}
	if tempo < 20 || tempo > 999 {
		return nil, fmt.Errorf("Tempo %g out of range (20-999)", tempo)
	}
	s.tempo = tempo
	return map[string]any{"tempo": tempo}, nil
}

func (s *Session) setClipPlaying(p params, playing bool) (map[string]any, error) {
	clip, err := s.clip(p)
	if err != nil {
		return nil, err
	}
	clip.Playing = playing
	key := "fired"
	if !playing {
		key = "stopped"
	}
	return map[string]any{key: true}, nil
}

func (s *Session) track(p params) (int, *Track, error) {
	idx, err := p.integer("track_index")
	if err != nil {
		return 0, nil, err
	}
	if idx < 0 || idx >= len(s.tracks) {
		return 0, nil, errTrackRange
	}
	return idx, s.tracks[idx], nil
}

func (s *Session) slot(p params) (*Track, int, error) {
	_, track, err := s.track(p)
	if err != nil {
		return nil, 0, err
	}
	slot, err := p.integer("clip_index")
	if err != nil {
		return nil, 0, err
	}
	if slot < 0 || slot >= len(track.Slots) {
		return nil, 0, errClipRange
	}
	return track, slot, nil
}

func (s *Session) clip(p params) (*Clip, error) {
	track, slot, err := s.slot(p)
	if err != nil {
		return nil, err
	}
	if track.Slots[slot] == nil {
		return nil, errSlotEmpty
	}
	return track.Slots[slot], nil
}

// Tracks returns a snapshot of the track names.
func (s *Session) Tracks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.tracks))
	for i, t := range s.tracks {
		names[i] = t.Name
	}
	return names
}

// Tempo returns the current tempo.
func (s *Session) Tempo() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tempo
}
