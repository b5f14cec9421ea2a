package client

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/d2verb/livectl/internal/frame"
	"github.com/d2verb/livectl/internal/logging"
	"github.com/d2verb/livectl/internal/protocol"
)

// Default connection parameters.
const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 9877
	DefaultConnectTimeout  = 5 * time.Second
	DefaultReadTimeout     = 10 * time.Second
	DefaultModifyTimeout   = 15 * time.Second
	DefaultReceiveTimeout  = frame.DefaultTimeout
	DefaultSettleDelay     = 100 * time.Millisecond
	DefaultProbeTimeout    = time.Second
	DefaultConnectAttempts = 3
	DefaultRetryDelay      = time.Second
	DefaultValidateCommand = protocol.CmdGetSessionInfo
)

// DialFunc opens the transport. net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Options configures a Conn, a Manager and a Client.
// Zero fields take the Default* values.
type Options struct {
	Host string
	Port int

	ConnectTimeout time.Duration
	// ReadTimeout and ModifyTimeout bound the response wait per command class.
	ReadTimeout   time.Duration
	ModifyTimeout time.Duration
	// ReceiveTimeout caps any single frame regardless of class.
	ReceiveTimeout time.Duration
	SettleDelay    time.Duration
	ProbeTimeout   time.Duration

	ConnectAttempts int
	RetryDelay      time.Duration
	ValidateCommand string

	ChunkSize     int
	MaxFrameBytes int

	// Classifier defaults to protocol.DefaultClassifier().
	Classifier *protocol.Classifier
	// Settler defaults to FixedSettle{Delay: SettleDelay}.
	Settler Settler
	Dial    DialFunc
	Logger  *slog.Logger
}

// DefaultOptions returns the options used to reach a local peer.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

// Addr returns host:port.
func (o Options) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

func (o Options) withDefaults() Options {
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.ModifyTimeout <= 0 {
		o.ModifyTimeout = DefaultModifyTimeout
	}
	if o.ReceiveTimeout <= 0 {
		o.ReceiveTimeout = DefaultReceiveTimeout
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.ConnectAttempts <= 0 {
		o.ConnectAttempts = DefaultConnectAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.ValidateCommand == "" {
		o.ValidateCommand = DefaultValidateCommand
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = frame.DefaultChunkSize
	}
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = frame.DefaultMaxBytes
	}
	if o.Classifier == nil {
		c := protocol.DefaultClassifier()
		o.Classifier = &c
	}
	if o.Settler == nil {
		o.Settler = FixedSettle{Delay: o.SettleDelay}
	}
	if o.Dial == nil {
		o.Dial = (&net.Dialer{}).DialContext
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	return o
}

// timeoutFor returns the response budget for a command class, never longer
// than the frame receive timeout.
func (o Options) timeoutFor(class protocol.Class) time.Duration {
	t := o.ReadTimeout
	if class == protocol.ClassModify {
		t = o.ModifyTimeout
	}
	return min(t, o.ReceiveTimeout)
}
