package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/d2verb/livectl/internal/client"
)

// Exit codes for CLI commands.
const (
	exitSuccess     = 0
	exitError       = 1
	exitUnavailable = 2
	exitPeerError   = 3
	exitTimeout     = 4
	exitProtocol    = 5
)

// ExitError represents an error that should cause the process to exit with a specific code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func errUnavailable(addr string) *ExitError {
	return &ExitError{
		Code:    exitUnavailable,
		Message: fmt.Sprintf("Cannot reach Ableton Live at %s.\nIs the remote script loaded? For a local stand-in run: livectl peer", addr),
	}
}

// mapClientError converts client errors to exit errors. Other errors pass through.
func mapClientError(err error, addr string) error {
	var e *client.Error
	if !errors.As(err, &e) {
		return err
	}

	switch e.Kind {
	case client.KindUnavailable:
		return errUnavailable(addr)
	case client.KindPeer:
		return &ExitError{
			Code:    exitPeerError,
			Message: fmt.Sprintf("Live rejected %s: %s", e.Command, e.Message),
		}
	case client.KindTimeout:
		return &ExitError{
			Code:    exitTimeout,
			Message: fmt.Sprintf("Timed out waiting for a response to %s.", e.Command),
		}
	case client.KindCanceled:
		return &ExitError{
			Code:    exitError,
			Message: fmt.Sprintf("Canceled: %s was not sent.", e.Command),
		}
	case client.KindIncomplete, client.KindInvalid, client.KindClosed:
		return &ExitError{
			Code:    exitProtocol,
			Message: fmt.Sprintf("Protocol error: %v", e),
		}
	default:
		return &ExitError{Code: exitError, Message: fmt.Sprintf("Error: %v", e)}
	}
}

// reportError writes err to w and returns the process exit code.
func reportError(w io.Writer, err error) int {
	if err == nil {
		return exitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintln(w, exitErr.Message)
		}
		return exitErr.Code
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return exitError
}
