package peer

import (
	"fmt"
	"math"

	"github.com/d2verb/livectl/internal/protocol"
)

// params reads typed values out of a decoded JSON object.
type params map[string]any

func (p params) number(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("Missing parameter: %s", key)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("Parameter %s must be a number", key)
	}
	return f, nil
}

func (p params) numberOr(key string, def float64) (float64, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.number(key)
}

func (p params) integer(key string) (int, error) {
	f, err := p.number(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("Parameter %s must be an integer", key)
	}
	return int(f), nil
}

func (p params) integerOr(key string, def int) (int, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.integer(key)
}

func (p params) text(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("Missing parameter: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("Parameter %s must be a string", key)
	}
	return s, nil
}

func (p params) notes(key string) ([]protocol.Note, error) {
	raw, ok := p[key].([]any)
	if !ok {
		return nil, fmt.Errorf("Parameter %s must be a list", key)
	}

	notes := make([]protocol.Note, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("Note %d must be an object", i)
		}
		np := params(m)
		pitch, err := np.integer("pitch")
		if err != nil {
			return nil, fmt.Errorf("Note %d: %w", i, err)
		}
		start, err := np.numberOr("start_time", 0)
		if err != nil {
			return nil, fmt.Errorf("Note %d: %w", i, err)
		}
		duration, err := np.numberOr("duration", 0.25)
		if err != nil {
			return nil, fmt.Errorf("Note %d: %w", i, err)
		}
		velocity, err := np.integerOr("velocity", 100)
		if err != nil {
			return nil, fmt.Errorf("Note %d: %w", i, err)
		}
		mute, _ := m["mute"].(bool)
		if pitch < 0 || pitch > 127 || velocity < 0 || velocity > 127 {
			return nil, fmt.Errorf("Note %d: pitch and velocity must be 0-127", i)
		}
		notes = append(notes, protocol.Note{
			Pitch:     pitch,
			StartTime: start,
			Duration:  duration,
			Velocity:  velocity,
			Mute:      mute,
		})
	}
	return notes, nil
}
