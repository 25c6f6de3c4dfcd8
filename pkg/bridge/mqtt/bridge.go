// Package mqtt bridges links to an MQTT broker. Every message received on
// a bus is published to <prefix>bus/<id>/rx, and every message published
// to <prefix>bus/<id>/tx is sent on that bus.
package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/linkdrv/pkg/link"
)

// ErrTimeout indicates the broker didn't respond in time.
var ErrTimeout = errors.New("mqtt timeout")

// Bridge is a link.Broker publishing to MQTT.
type Bridge struct {
	Client      paho.Client
	TopicPrefix string
	QoS         byte
	// Next also receives every delivered message.
	Next link.Broker

	driversLock sync.RWMutex
	drivers     map[link.BusID]link.Driver
}

// New creates a Bridge.
func New(options *paho.ClientOptions, topicPrefix string) *Bridge {
	b := &Bridge{TopicPrefix: topicPrefix, drivers: make(map[link.BusID]link.Driver)}
	options.SetOnConnectHandler(b.onConnect)
	options.SetConnectionLostHandler(b.onConnectionLost)
	b.Client = paho.NewClient(options)
	return b
}

// NewFromURL creates a Bridge from the broker URL.
func NewFromURL(brokerURL string) (*Bridge, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return New(opts, topicPrefix), nil
}

// Connect connects to the broker and waits up to timeout.
func (b *Bridge) Connect(timeout time.Duration) error {
	return waitToken(b.Client.Connect(), timeout, "connect")
}

// Close disconnects from the broker.
func (b *Bridge) Close() error {
	b.Client.Disconnect(250)
	return nil
}

// Attach routes tx messages of the driver's bus to the driver.
func (b *Bridge) Attach(drv link.Driver) {
	b.driversLock.Lock()
	if b.drivers == nil {
		b.drivers = make(map[link.BusID]link.Driver)
	}
	b.drivers[drv.Bus()] = drv
	b.driversLock.Unlock()
}

// Deliver implements link.Broker.
func (b *Bridge) Deliver(bus link.BusID, data []byte) {
	if b.Client.IsConnected() {
		topic := b.TopicPrefix + RxTopic(bus)
		glog.V(2).Infof("PUB %q %d bytes", topic, len(data))
		go publishResult(topic, b.Client.Publish(topic, b.QoS, false, data))
	}
	if next := b.Next; next != nil {
		next.Deliver(bus, data)
	}
}

func (b *Bridge) onConnect(c paho.Client) {
	glog.Infof("mqtt connected, subscribing %q", b.TopicPrefix+TxFilter)
	c.Subscribe(b.TopicPrefix+TxFilter, b.QoS, b.dispatch)
}

func (b *Bridge) onConnectionLost(_ paho.Client, err error) {
	glog.Warningf("mqtt connection lost: %v", err)
}

func (b *Bridge) dispatch(_ paho.Client, msg paho.Message) {
	topic := msg.Topic()
	if len(topic) < len(b.TopicPrefix) || topic[:len(b.TopicPrefix)] != b.TopicPrefix {
		return
	}
	bus, ok := ParseTxTopic(topic[len(b.TopicPrefix):])
	if !ok {
		glog.V(2).Infof("ignore %q", topic)
		return
	}
	b.driversLock.RLock()
	drv := b.drivers[bus]
	b.driversLock.RUnlock()
	if drv == nil {
		glog.Warningf("mqtt: no link on bus %s", bus)
		return
	}
	if err := drv.Send(msg.Payload()); err != nil {
		glog.Warningf("mqtt: send on bus %s: %v", bus, err)
	}
}

func publishResult(topic string, token paho.Token) {
	token.Wait()
	if err := token.Error(); err != nil {
		glog.V(1).Infof("PUB %q failed: %v", topic, err)
	}
}

func waitToken(token paho.Token, timeout time.Duration, op string) error {
	if !token.WaitTimeout(timeout) {
		return errors.Wrap(ErrTimeout, op)
	}
	return errors.Wrap(token.Error(), op)
}
