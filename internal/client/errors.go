package client

import (
	"errors"
	"fmt"

	"github.com/d2verb/livectl/internal/frame"
)

// Kind classifies a client error.
type Kind int

const (
	// KindTransport is a socket failure: connect refused, reset, broken pipe.
	KindTransport Kind = iota + 1
	// KindUnavailable means no usable connection after all attempts.
	KindUnavailable
	// KindTimeout means nothing arrived within the command's timeout.
	KindTimeout
	// KindIncomplete means part of a frame arrived before the timeout or close.
	KindIncomplete
	// KindInvalid means the response was not a valid protocol frame.
	KindInvalid
	// KindClosed means the peer closed the socket before answering.
	KindClosed
	// KindPeer means the peer answered with status "error".
	KindPeer
	// KindEncode means the request params could not be encoded.
	KindEncode
	// KindCanceled means the context ended before the command was sent.
	// The connection is left as it was.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindIncomplete:
		return "incomplete response"
	case KindInvalid:
		return "invalid response"
	case KindClosed:
		return "connection closed"
	case KindPeer:
		return "peer error"
	case KindEncode:
		return "encode"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Transport reports whether errors of this kind discard the connection.
func (k Kind) Transport() bool {
	switch k {
	case KindTransport, KindTimeout, KindIncomplete, KindInvalid, KindClosed:
		return true
	default:
		return false
	}
}

// Error is returned by every client operation.
type Error struct {
	Kind    Kind
	Command string
	// Message is the peer's message for KindPeer, otherwise a short description.
	Message string
	Err     error
}

func (e *Error) Error() string {
	var prefix string
	if e.Command != "" {
		prefix = e.Command + ": "
	}
	if e.Kind == KindPeer {
		return prefix + "peer error: " + e.Message
	}
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s%s: %v", prefix, msg, e.Err)
	}
	return prefix + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or 0 if err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsPeerError reports whether the peer rejected the command.
// The connection is still usable after such an error.
func IsPeerError(err error) bool {
	return KindOf(err) == KindPeer
}

// IsUnavailable reports whether the peer could not be reached at all.
func IsUnavailable(err error) bool {
	return KindOf(err) == KindUnavailable
}

// IsCanceled reports whether the caller's context ended the operation.
func IsCanceled(err error) bool {
	return KindOf(err) == KindCanceled
}

// IsTimeout reports whether the command timed out waiting for a response.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// frameKind maps a frame or socket error to a Kind.
func frameKind(err error) Kind {
	switch {
	case errors.Is(err, frame.ErrClosed):
		return KindClosed
	case errors.Is(err, frame.ErrIncomplete):
		return KindIncomplete
	case errors.Is(err, frame.ErrTimeout):
		return KindTimeout
	case errors.Is(err, frame.ErrMalformed),
		errors.Is(err, frame.ErrTrailingData),
		errors.Is(err, frame.ErrTooLarge):
		return KindInvalid
	case frame.IsTimeout(err):
		return KindTimeout
	default:
		return KindTransport
	}
}
