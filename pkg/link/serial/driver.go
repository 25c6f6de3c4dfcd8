// Package serial implements the link driver over a character device such
// as a UART.
package serial

import (
	"context"
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/linkdrv/pkg/link"
)

// ErrNoData indicates the device returned neither data nor an error.
var ErrNoData = errors.New("read returned no data")

// Opener opens the device described by the configuration.
type Opener func(conf *Config) (io.ReadWriteCloser, error)

// Driver is the serial link driver. Any read failure is fatal.
type Driver struct {
	link.Base
	// Opener defaults to OpenPort.
	Opener Opener

	local  Config
	remote Config
	port   io.ReadWriteCloser
}

// New creates a driver delivering to broker.
func New(broker link.Broker) *Driver {
	d := &Driver{}
	d.Broker = broker
	return d
}

// Init opens and configures the device and starts reading from it.
func (d *Driver) Init(ctx context.Context, bus link.BusID, dev link.DeviceID, local, remote *Config) error {
	if err := local.Validate(); err != nil {
		return err
	}
	if err := d.Setup(bus, dev); err != nil {
		return err
	}
	d.local = *local
	if remote != nil {
		d.remote = *remote
	}
	open := d.Opener
	if open == nil {
		open = OpenPort
	}
	port, err := open(&d.local)
	if err != nil {
		return err
	}
	d.port = port
	eff := d.local.Effective()
	glog.Infof("bus %s: serial driver on %s, %d baud, %d bits, parity %s",
		bus, eff.DevName, eff.Speed, eff.Bits, eff.Parity)
	d.StartPolling(ctx, port, d.poll)
	return nil
}

func (d *Driver) poll() error {
	parser := d.NewParser()
	buf := make([]byte, d.RecvBufferSize)
	for {
		n, err := d.port.Read(buf)
		if n > 0 {
			if perr := d.Receive(parser, buf[:n]); perr != nil {
				return perr
			}
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", d.local.DevName)
		}
		if n == 0 {
			return errors.Wrap(ErrNoData, d.local.DevName)
		}
	}
}

// Send writes the encoded message to the device.
func (d *Driver) Send(data []byte) error {
	if d.port == nil {
		return link.ErrNotInitialized
	}
	if err := d.SendMessage(d.port, data); err != nil {
		glog.Warningf("bus %s: write %s: %v", d.Bus(), d.local.DevName, err)
		return err
	}
	return nil
}
