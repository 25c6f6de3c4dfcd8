//go:build linux

package link

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// SocketControl returns a net.ListenConfig/net.Dialer Control function
// applying the socket options of the configuration.
func (c *IPConfig) SocketControl(reuseAddr bool) func(network, address string, rc syscall.RawConn) error {
	devName := c.DevName
	if devName == "" && !reuseAddr {
		return nil
	}
	return func(network, address string, rc syscall.RawConn) error {
		var sockErr error
		err := rc.Control(func(fd uintptr) {
			if reuseAddr {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}
			if sockErr == nil && devName != "" {
				sockErr = unix.BindToDevice(int(fd), devName)
			}
		})
		if err != nil {
			return err
		}
		return sockErr
	}
}
