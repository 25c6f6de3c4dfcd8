// Package datagram implements the link driver over UDP.
//
// A single bound socket receives frames from any peer and feeds them into
// one parser. Every frame of an outgoing message is sent as one datagram
// to the remote endpoint.
package datagram

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"
	pkgerrors "github.com/pkg/errors"

	"github.com/robotalks/linkdrv/pkg/link"
)

const receiveRetryDelay = 50 * time.Millisecond

// Driver is the UDP link driver.
type Driver struct {
	link.Base

	local  link.IPConfig
	remote link.IPConfig
	conn   net.PacketConn
	dialer net.Dialer

	sockLock sync.Mutex
	sendConn net.Conn
}

// New creates a driver delivering to broker.
func New(broker link.Broker) *Driver {
	d := &Driver{}
	d.Broker = broker
	return d
}

// Init binds the local socket and starts receiving. Cancelling ctx stops
// the driver.
func (d *Driver) Init(ctx context.Context, bus link.BusID, dev link.DeviceID, local, remote *link.IPConfig) error {
	if err := local.Validate(); err != nil {
		return pkgerrors.Wrap(err, "local")
	}
	if err := remote.Validate(); err != nil {
		return pkgerrors.Wrap(err, "remote")
	}
	if err := d.Setup(bus, dev); err != nil {
		return err
	}
	d.local, d.remote = *local, *remote

	lc := net.ListenConfig{Control: d.local.SocketControl(true)}
	conn, err := lc.ListenPacket(ctx, d.local.Version.Network("udp"), d.local.HostPort())
	if err != nil {
		return pkgerrors.Wrapf(err, "bind %s", d.local.HostPort())
	}
	d.conn = conn
	d.dialer = net.Dialer{Control: d.local.SocketControl(false)}
	glog.Infof("bus %s: datagram driver bound to %s, remote %s", bus, conn.LocalAddr(), d.remote.HostPort())
	d.StartPolling(ctx, conn, d.poll)
	return nil
}

// Addr returns the bound address.
func (d *Driver) Addr() net.Addr {
	if d.conn == nil {
		return nil
	}
	return d.conn.LocalAddr()
}

func (d *Driver) poll() error {
	parser := d.NewParser()
	// one spare byte detects datagrams truncated by the kernel.
	buf := make([]byte, d.RecvBufferSize+1)
	for {
		n, from, err := d.conn.ReadFrom(buf)
		if n > d.RecvBufferSize {
			glog.Warningf("bus %s: datagram from %s exceeds receive buffer of %d bytes, dropped",
				d.Bus(), from, d.RecvBufferSize)
			d.Metrics().TruncatedDatagrams.Inc()
			parser.Reset()
		} else if n > 0 {
			if glog.V(3) {
				glog.Infof("bus %s: %d bytes from %s", d.Bus(), n, from)
			}
			if perr := d.Receive(parser, buf[:n]); perr != nil {
				return perr
			}
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			glog.Warningf("bus %s: receive: %v", d.Bus(), err)
			time.Sleep(receiveRetryDelay)
		}
	}
}

// Send writes every frame of the message as a datagram to the remote
// endpoint.
func (d *Driver) Send(data []byte) error {
	if d.conn == nil {
		return link.ErrNotInitialized
	}
	if d.Closed() {
		return link.ErrClosed
	}
	conn, err := d.sendSocket()
	if err != nil {
		d.Metrics().SendFailures.Inc()
		glog.Warningf("bus %s: open send socket: %v", d.Bus(), err)
		return err
	}
	if !d.remote.ReuseSendSocket {
		defer conn.Close()
	}
	if err = d.SendMessage(conn, data); err != nil {
		glog.Warningf("bus %s: send to %s: %v", d.Bus(), d.remote.HostPort(), err)
		return err
	}
	return nil
}

func (d *Driver) sendSocket() (net.Conn, error) {
	if !d.remote.ReuseSendSocket {
		return d.dial()
	}
	d.sockLock.Lock()
	defer d.sockLock.Unlock()
	if d.sendConn == nil {
		conn, err := d.dial()
		if err != nil {
			return nil, err
		}
		d.sendConn = conn
	}
	return d.sendConn, nil
}

func (d *Driver) dial() (net.Conn, error) {
	addr := d.remote.HostPort()
	conn, err := d.dialer.Dial(d.remote.Version.Network("udp"), addr)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "dial %s", addr)
	}
	return conn, nil
}

// Close stops receiving and releases the send socket.
func (d *Driver) Close() error {
	err := d.Base.Close()
	d.sockLock.Lock()
	defer d.sockLock.Unlock()
	if d.sendConn != nil {
		d.sendConn.Close()
		d.sendConn = nil
	}
	return err
}
