//go:build !linux

package link

import (
	"errors"
	"syscall"
)

// SocketControl returns a net.ListenConfig/net.Dialer Control function
// applying the socket options of the configuration. Binding to a device
// is only supported on linux.
func (c *IPConfig) SocketControl(reuseAddr bool) func(network, address string, rc syscall.RawConn) error {
	if c.DevName == "" {
		return nil
	}
	return func(string, string, syscall.RawConn) error {
		return errors.New("binding to device " + c.DevName + " is not supported")
	}
}
