package link

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// IPVersion selects the address family of an IP transport.
type IPVersion int

// Supported versions.
const (
	IPv4 IPVersion = iota
	IPv6
)

// String implements fmt.Stringer.
func (v IPVersion) String() string {
	switch v {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	}
	return "IPVersion(" + strconv.Itoa(int(v)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
func (v IPVersion) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *IPVersion) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "ipv4", "4", "":
		*v = IPv4
	case "ipv6", "6":
		*v = IPv6
	default:
		return fmt.Errorf("unknown ip version %q", text)
	}
	return nil
}

// Network returns the network name for net.Dial and friends, e.g.
// "tcp4" for proto "tcp".
func (v IPVersion) Network(proto string) string {
	if v == IPv6 {
		return proto + "6"
	}
	return proto + "4"
}

// IPConfig configures one end of an IP link.
type IPConfig struct {
	// DevName optionally binds the socket to a network interface.
	DevName string `toml:"devname"`
	// Address is a host name or a literal IP. Empty means any address
	// when listening.
	Address string    `toml:"address"`
	Version IPVersion `toml:"version"`
	Port    int       `toml:"port"`
	// ReuseSendSocket keeps one datagram socket open for all sends.
	ReuseSendSocket bool `toml:"reuse_send_socket"`
}

// Validate checks the configuration.
func (c *IPConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Wrapf(ErrInvalidPort, "%d", c.Port)
	}
	if c.Version != IPv4 && c.Version != IPv6 {
		return errors.Errorf("unknown ip version %d", int(c.Version))
	}
	if ip := net.ParseIP(c.Address); ip != nil {
		if is4 := ip.To4() != nil; is4 != (c.Version == IPv4) {
			return errors.Wrapf(ErrInvalidAddress, "%s is not an %s address", c.Address, c.Version)
		}
	}
	return nil
}

// HostPort returns the address in host:port form.
func (c *IPConfig) HostPort() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}
