package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/robotalks/linkdrv/pkg/link"
	"github.com/robotalks/linkdrv/pkg/link/datagram"
	"github.com/robotalks/linkdrv/pkg/link/serial"
	"github.com/robotalks/linkdrv/pkg/link/stream"
)

// Kind selects the transport of a link.
type Kind string

// Supported transports.
const (
	KindStream   Kind = "stream"
	KindDatagram Kind = "datagram"
	KindSerial   Kind = "serial"
)

// UnmarshalText implements encoding.TextUnmarshaler and accepts the
// protocol names as aliases.
func (k *Kind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "stream", "tcp":
		*k = KindStream
	case "datagram", "udp":
		*k = KindDatagram
	case "serial", "uart":
		*k = KindSerial
	default:
		return fmt.Errorf("unknown link kind %q", text)
	}
	return nil
}

// LinkConfig is one entry of the link table.
type LinkConfig struct {
	Name   string        `toml:"name"`
	Kind   Kind          `toml:"kind"`
	Bus    link.BusID    `toml:"bus"`
	Device link.DeviceID `toml:"device"`

	FrameSize      int `toml:"frame_size"`
	RecvBufferSize int `toml:"recv_buffer_size"`
	MaxMessageSize int `toml:"max_message_size"`
	MaxConnections int `toml:"max_connections"`

	Local        *link.IPConfig `toml:"local"`
	Remote       *link.IPConfig `toml:"remote"`
	Serial       *serial.Config `toml:"serial"`
	RemoteSerial *serial.Config `toml:"remote_serial"`
}

// Validate checks the entry.
func (l *LinkConfig) Validate() error {
	switch l.Kind {
	case KindStream, KindDatagram:
		if l.Local == nil || l.Remote == nil {
			return errors.New("local and remote endpoints are required")
		}
		if err := l.Local.Validate(); err != nil {
			return errors.Wrap(err, "local")
		}
		return errors.Wrap(l.Remote.Validate(), "remote")
	case KindSerial:
		if l.Serial == nil {
			return errors.New("serial device is required")
		}
		return l.Serial.Validate()
	}
	return errors.Errorf("unknown link kind %q", l.Kind)
}

func (l *LinkConfig) setupBase(b *link.Base) {
	b.FrameSize = l.FrameSize
	b.RecvBufferSize = l.RecvBufferSize
	b.MaxMessageSize = l.MaxMessageSize
}

// NewDriver creates and initializes the driver of the entry.
func (l *LinkConfig) NewDriver(ctx context.Context, broker link.Broker) (link.Driver, error) {
	var drv link.Driver
	var err error
	switch l.Kind {
	case KindStream:
		d := stream.New(broker)
		l.setupBase(&d.Base)
		d.MaxConnections = l.MaxConnections
		drv, err = d, d.Init(ctx, l.Bus, l.Device, l.Local, l.Remote)
	case KindDatagram:
		d := datagram.New(broker)
		l.setupBase(&d.Base)
		drv, err = d, d.Init(ctx, l.Bus, l.Device, l.Local, l.Remote)
	case KindSerial:
		d := serial.New(broker)
		l.setupBase(&d.Base)
		drv, err = d, d.Init(ctx, l.Bus, l.Device, l.Serial, l.RemoteSerial)
	default:
		err = errors.Errorf("unknown link kind %q", l.Kind)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "init %s link %s on bus %d", l.Kind, l.Name, l.Bus)
	}
	return drv, nil
}
