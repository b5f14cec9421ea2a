// Package frame reads self-delimiting JSON frames from a byte stream.
//
// The wire protocol has no length prefix and no delimiter: a frame is complete
// as soon as the accumulated bytes parse as exactly one JSON value.
package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	// DefaultChunkSize is the size of each read from the stream.
	DefaultChunkSize = 8 * 1024
	// DefaultTimeout bounds how long one frame may take to arrive.
	DefaultTimeout = 15 * time.Second
	// DefaultMaxBytes caps the buffer a single frame may grow to.
	DefaultMaxBytes = 16 * 1024 * 1024
)

var (
	ErrClosed       = errors.New("frame: connection closed before any data")
	ErrTimeout      = errors.New("frame: timed out before any data")
	ErrIncomplete   = errors.New("frame: incomplete JSON frame")
	ErrMalformed    = errors.New("frame: malformed JSON frame")
	ErrTrailingData = errors.New("frame: unexpected data after frame")
	ErrTooLarge     = errors.New("frame: frame too large")
)

// Source is a stream with read deadlines, normally a net.Conn.
type Source interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// Options bounds a single Read call.
type Options struct {
	ChunkSize int
	// Timeout applies to the whole frame, not to each chunk.
	// Zero means no deadline.
	Timeout  time.Duration
	MaxBytes int
}

// DefaultOptions returns 8 KiB chunks, a 15s budget and a 16 MiB cap.
func DefaultOptions() Options {
	return Options{
		ChunkSize: DefaultChunkSize,
		Timeout:   DefaultTimeout,
		MaxBytes:  DefaultMaxBytes,
	}
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	return o
}

// Read accumulates chunks from src until they hold one complete JSON value and
// returns those bytes without waiting for EOF.
//
// On failure the bytes received so far (possibly nil) are returned alongside
// the error so callers can log them. A peer that closes mid-frame yields
// ErrIncomplete wrapping io.ErrUnexpectedEOF; a deadline hit mid-frame yields
// ErrIncomplete wrapping the timeout.
func Read(src Source, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	var deadline time.Time
	if opts.Timeout > 0 {
		deadline = time.Now().Add(opts.Timeout)
	}
	if err := src.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("frame: set read deadline: %w", err)
	}

	var buf []byte
	chunk := make([]byte, opts.ChunkSize)
	for {
		n, err := src.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if len(buf) > opts.MaxBytes {
				return buf, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, opts.MaxBytes)
			}
			complete, scanErr := scan(buf, false)
			if scanErr != nil {
				return buf, scanErr
			}
			if complete {
				return buf, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(buf) > 0 {
				// EOF ends a bare number that was waiting for more digits.
				if complete, _ := scan(buf, true); complete {
					return buf, nil
				}
			}
			return buf, readFailure(buf, err)
		}
	}
}

// scan reports whether buf holds exactly one complete JSON value.
// A truncated value is not an error; a syntax error or a second value is.
// A top-level number that runs to the end of buf may still be growing, so it
// only counts as complete once followed by whitespace or when final is set.
func scan(buf []byte, final bool) (bool, error) {
	dec := json.NewDecoder(bytes.NewReader(buf))
	var v json.RawMessage
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	end := int(dec.InputOffset())
	if rest := bytes.TrimSpace(buf[end:]); len(rest) > 0 {
		return false, fmt.Errorf("%w: %d bytes", ErrTrailingData, len(rest))
	}
	if !final && end == len(buf) && isNumber(v) {
		return false, nil
	}
	return true, nil
}

func isNumber(v json.RawMessage) bool {
	return len(v) > 0 && (v[0] == '-' || (v[0] >= '0' && v[0] <= '9'))
}

func readFailure(buf []byte, err error) error {
	empty := len(bytes.TrimSpace(buf)) == 0
	switch {
	case errors.Is(err, io.EOF):
		if empty {
			return ErrClosed
		}
		return fmt.Errorf("%w: peer closed after %d bytes: %w", ErrIncomplete, len(buf), io.ErrUnexpectedEOF)
	case IsTimeout(err):
		if empty {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: timed out after %d bytes: %w", ErrIncomplete, len(buf), err)
	default:
		return fmt.Errorf("frame: read: %w", err)
	}
}

// IsTimeout reports whether err is a deadline expiry from a net.Conn or pipe.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
