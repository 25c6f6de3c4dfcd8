// Package stream implements the link driver over TCP.
//
// Every instance listens for peers and serves up to MaxConnections of them
// at once. Sending opens a fresh connection to the remote peer, writes the
// encoded message and closes the connection again.
package stream

import (
	"context"
	"net"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/linkdrv/pkg/link"
)

// Driver is the TCP link driver.
type Driver struct {
	link.Base
	MaxConnections int

	local  link.IPConfig
	remote link.IPConfig
	mux    *Multiplexer
	dialer net.Dialer
}

// New creates a driver delivering to broker.
func New(broker link.Broker) *Driver {
	d := &Driver{}
	d.Broker = broker
	return d
}

// Init binds the local endpoint and starts serving peers. Cancelling ctx
// stops the driver.
func (d *Driver) Init(ctx context.Context, bus link.BusID, dev link.DeviceID, local, remote *link.IPConfig) error {
	if err := local.Validate(); err != nil {
		return errors.Wrap(err, "local")
	}
	if err := remote.Validate(); err != nil {
		return errors.Wrap(err, "remote")
	}
	if err := d.Setup(bus, dev); err != nil {
		return err
	}
	d.local, d.remote = *local, *remote

	lc := net.ListenConfig{Control: d.local.SocketControl(false)}
	ln, err := lc.Listen(ctx, d.local.Version.Network("tcp"), d.local.HostPort())
	if err != nil {
		return errors.Wrapf(err, "listen %s", d.local.HostPort())
	}
	d.dialer = net.Dialer{Control: d.local.SocketControl(false)}
	d.mux = NewMultiplexer(&d.Base, ln, d.MaxConnections)
	glog.Infof("bus %s: stream driver listening on %s, remote %s", bus, ln.Addr(), d.remote.HostPort())
	d.StartPolling(ctx, d.mux, d.mux.Serve)
	return nil
}

// Addr returns the listening address.
func (d *Driver) Addr() net.Addr {
	if d.mux == nil {
		return nil
	}
	return d.mux.Listener.Addr()
}

// ActiveConnections returns the number of connected peers.
func (d *Driver) ActiveConnections() int {
	if d.mux == nil {
		return 0
	}
	return d.mux.ActiveConnections()
}

// Send connects to the remote peer, writes the message and disconnects.
// A failure is logged and returned, the driver keeps running.
func (d *Driver) Send(data []byte) error {
	if d.mux == nil {
		return link.ErrNotInitialized
	}
	if d.Closed() {
		return link.ErrClosed
	}
	addr := d.remote.HostPort()
	conn, err := d.dialer.Dial(d.remote.Version.Network("tcp"), addr)
	if err != nil {
		d.Metrics().SendFailures.Inc()
		glog.Warningf("bus %s: connect %s: %v", d.Bus(), addr, err)
		return errors.Wrapf(err, "connect %s", addr)
	}
	defer conn.Close()
	if err = d.SendMessage(conn, data); err != nil {
		glog.Warningf("bus %s: send to %s: %v", d.Bus(), addr, err)
		return err
	}
	return nil
}
