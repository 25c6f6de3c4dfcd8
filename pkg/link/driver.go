package link

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/robotalks/linkdrv/pkg/framing"
	"github.com/robotalks/linkdrv/pkg/link/metrics"
	"github.com/robotalks/linkdrv/pkg/runtime"
)

// Defaults applied by Setup to zero fields of Base.
const (
	DefaultFrameSize      = 256
	DefaultRecvBufferSize = 8 * 1024
	DefaultMaxMessageSize = framing.DefaultMaxMessageSize
)

// Base carries the state every driver instance owns: its ids, the broker,
// the encode buffer and the polling goroutine. Transports embed it.
//
// The exported fields must be set before Setup.
type Base struct {
	Broker Broker
	// FrameSize is the capacity of the encode buffer, a message larger
	// than that is written in several frames.
	FrameSize int
	// RecvBufferSize is the size of a single transport read.
	RecvBufferSize int
	// MaxMessageSize is the capacity of every reassembly buffer.
	MaxMessageSize int
	// OnFatal is called from the polling goroutine when polling fails.
	// The default logs and exits the process.
	OnFatal func(error)

	bus     BusID
	device  DeviceID
	metrics *metrics.Bus

	initialized atomic.Bool
	closed      atomic.Bool

	sendLock sync.Mutex
	encoder  framing.Encoder
	sendBuf  []byte

	closer io.Closer
	done   chan struct{}
}

// Setup assigns the ids and allocates the encode buffer. Drivers call it
// first in their Init.
func (b *Base) Setup(bus BusID, dev DeviceID) error {
	if !b.initialized.CAS(false, true) {
		return ErrAlreadyInitialized
	}
	b.bus, b.device = bus, dev
	if b.FrameSize < framing.MinFrameSize {
		b.FrameSize = DefaultFrameSize
	}
	if b.RecvBufferSize <= 0 {
		b.RecvBufferSize = DefaultRecvBufferSize
	}
	if b.MaxMessageSize <= 0 {
		b.MaxMessageSize = DefaultMaxMessageSize
	}
	b.sendBuf = make([]byte, b.FrameSize)
	b.metrics = metrics.ForBus(bus.String())
	return nil
}

// Bus implements Driver.
func (b *Base) Bus() BusID {
	return b.bus
}

// Device returns the device id.
func (b *Base) Device() DeviceID {
	return b.device
}

// Metrics returns the collectors of the bus.
func (b *Base) Metrics() *metrics.Bus {
	return b.metrics
}

// Closed indicates Close has been called.
func (b *Base) Closed() bool {
	return b.closed.Load()
}

// StartPolling runs poll in a new goroutine. Closing closer must make poll
// return, it's closed when ctx is done, on Close, or when poll returns.
// An error from poll which is not caused by either is fatal.
func (b *Base) StartPolling(ctx context.Context, closer io.Closer, poll func() error) {
	b.closer = closer
	b.done = make(chan struct{})
	go func() {
		defer close(b.done)
		err := runtime.RunWithContextCloser(ctx, closer, poll)
		if err == nil || errors.Is(err, context.Canceled) || b.closed.Load() {
			glog.Infof("bus %s: polling stopped", b.bus)
			return
		}
		b.Fatal(err)
	}()
}

// Done is closed once the polling goroutine exits.
func (b *Base) Done() <-chan struct{} {
	return b.done
}

// Fatal reports an unrecoverable error of the instance.
func (b *Base) Fatal(err error) {
	glog.Errorf("bus %s device %d: %v", b.bus, b.device, err)
	if fn := b.OnFatal; fn != nil {
		fn(err)
		return
	}
	glog.Exitf("bus %s: fatal link error", b.bus)
}

// Deliver hands a decoded message to the broker.
func (b *Base) Deliver(data []byte) {
	b.metrics.Delivered.Inc()
	if glog.V(2) {
		glog.Infof("bus %s: received % x", b.bus, data)
	}
	if br := b.Broker; br != nil {
		br.Deliver(b.bus, data)
	}
}

// NewParser creates a parser delivering to the broker.
func (b *Base) NewParser() *framing.Parser {
	return framing.NewParser(b.MaxMessageSize, framing.HandleMessageFunc(b.Deliver))
}

// Receive feeds a chunk read from the transport into p.
func (b *Base) Receive(p *framing.Parser, chunk []byte) error {
	if err := p.Feed(chunk); err != nil {
		b.metrics.Overflows.Inc()
		return errors.Wrapf(err, "bus %s", b.bus)
	}
	return nil
}

// SendMessage encodes data and writes every frame to w. Calls are
// serialized on the instance.
func (b *Base) SendMessage(w io.Writer, data []byte) error {
	if !b.initialized.Load() {
		return ErrNotInitialized
	}
	if b.closed.Load() {
		return ErrClosed
	}

	b.sendLock.Lock()
	defer b.sendLock.Unlock()
	b.encoder.Reset(data)
	for frames := 0; !b.encoder.Done(); frames++ {
		n, err := b.encoder.Encode(b.sendBuf)
		if err != nil {
			return err
		}
		if err = writeFull(w, b.sendBuf[:n]); err != nil {
			b.metrics.SendFailures.Inc()
			return errors.Wrapf(err, "write frame %d", frames)
		}
		b.metrics.FramesSent.Inc()
		if glog.V(3) {
			glog.Infof("bus %s: frame %d % x", b.bus, frames, b.sendBuf[:n])
		}
	}
	b.metrics.MessagesSent.Inc()
	return nil
}

// Close stops polling and waits for the polling goroutine.
func (b *Base) Close() error {
	if !b.closed.CAS(false, true) {
		return nil
	}
	var err error
	if b.closer != nil {
		err = b.closer.Close()
	}
	if b.done != nil {
		<-b.done
	}
	return err
}

func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}
