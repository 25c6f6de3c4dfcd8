package serial

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Baudrate is the line speed in bits per second.
type Baudrate int

// Supported line speeds.
const (
	Baud9600   Baudrate = 9600
	Baud19200  Baudrate = 19200
	Baud38400  Baudrate = 38400
	Baud57600  Baudrate = 57600
	Baud115200 Baudrate = 115200
	Baud230400 Baudrate = 230400

	DefaultBaudrate = Baud115200
)

// Supported indicates the line speed can be configured.
func (b Baudrate) Supported() bool {
	switch b {
	case Baud9600, Baud19200, Baud38400, Baud57600, Baud115200, Baud230400:
		return true
	}
	return false
}

// Parity is the parity mode used when the parity bit is enabled.
type Parity int

// Parity modes.
const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// String implements fmt.Stringer.
func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	}
	return "Parity(" + strconv.Itoa(int(p)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
func (p Parity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Parity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "none", "":
		*p = ParityNone
	case "even":
		*p = ParityEven
	case "odd":
		*p = ParityOdd
	default:
		return fmt.Errorf("unknown parity %q", text)
	}
	return nil
}

// DefaultBits is the default character size.
const DefaultBits = 8

// Config configures one end of a serial link.
type Config struct {
	DevName      string   `toml:"devname"`
	Speed        Baudrate `toml:"speed"`
	Parity       Parity   `toml:"parity"`
	Bits         int      `toml:"bits"`
	UseParityBit bool     `toml:"use_paritybit"`
}

// Validate checks the configuration. Unsupported line settings are not
// errors, see Effective.
func (c *Config) Validate() error {
	if c.DevName == "" {
		return errors.New("missing device name")
	}
	return nil
}

// Effective returns the configuration actually applied to the device.
// Unsupported values fall back to 115200 baud, 8 bits and no parity with
// a warning. Zero values silently take the defaults.
func (c *Config) Effective() Config {
	e := *c
	if !e.Speed.Supported() {
		if e.Speed != 0 {
			glog.Warningf("%s: unsupported baudrate %d, defaulting to %d", c.DevName, e.Speed, DefaultBaudrate)
		}
		e.Speed = DefaultBaudrate
	}
	if e.Bits < 5 || e.Bits > 8 {
		if e.Bits != 0 {
			glog.Warningf("%s: unsupported character size %d, defaulting to %d bits", c.DevName, e.Bits, DefaultBits)
		}
		e.Bits = DefaultBits
	}
	if !e.UseParityBit {
		e.Parity = ParityNone
	} else if e.Parity != ParityEven && e.Parity != ParityOdd {
		glog.Warningf("%s: unsupported parity %s, defaulting to no parity", c.DevName, e.Parity)
		e.Parity, e.UseParityBit = ParityNone, false
	}
	return e
}
