package link

import (
	"strconv"
)

// BusID identifies the logical link a driver instance serves.
type BusID int

// String implements fmt.Stringer.
func (id BusID) String() string {
	return strconv.Itoa(int(id))
}

// DeviceID identifies the driver instance on its bus.
type DeviceID int

// Broker receives every fully decoded message.
type Broker interface {
	Deliver(bus BusID, data []byte)
}

// DeliverFunc is the func form of Broker.
type DeliverFunc func(bus BusID, data []byte)

// Deliver implements Broker.
func (f DeliverFunc) Deliver(bus BusID, data []byte) {
	f(bus, data)
}

// Driver is an initialized driver instance.
type Driver interface {
	Bus() BusID
	// Send encodes data and writes it to the peer. It's safe to call Send
	// from multiple goroutines.
	Send(data []byte) error
	Close() error
}
