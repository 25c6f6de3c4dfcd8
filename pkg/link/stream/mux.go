package stream

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.uber.org/atomic"

	"github.com/robotalks/linkdrv/pkg/framing"
	"github.com/robotalks/linkdrv/pkg/link"
)

// DefaultMaxConnections is the default size of the connection table.
const DefaultMaxConnections = 8

const acceptRetryDelay = 50 * time.Millisecond

// Connection is an accepted peer. Its parser is only touched by the
// serving loop.
type Connection struct {
	ID   int
	Conn net.Conn

	parser *framing.Parser
}

type eventKind int

const (
	eventAccepted eventKind = iota
	eventData
	eventHangup
	eventListenerClosed
)

type event struct {
	kind eventKind
	conn *Connection
	nc   net.Conn
	data []byte
	err  error
}

// Multiplexer serves a listener and a bounded number of accepted
// connections. An accept goroutine and one reader goroutine per
// connection post readiness events which are consumed by Serve, so all
// parsing happens on the serving goroutine.
//
// When the table is full, a new peer is closed right after accept and the
// existing connections are left untouched.
type Multiplexer struct {
	Listener       net.Listener
	MaxConnections int

	base    *link.Base
	conns   map[int]*Connection
	nextID  int
	active  atomic.Int32
	eventCh chan event
	stopCh  chan struct{}
	stop    sync.Once
}

// NewMultiplexer creates a Multiplexer delivering through base.
func NewMultiplexer(base *link.Base, ln net.Listener, maxConns int) *Multiplexer {
	if maxConns <= 0 {
		maxConns = DefaultMaxConnections
	}
	return &Multiplexer{
		Listener:       ln,
		MaxConnections: maxConns,
		base:           base,
		conns:          make(map[int]*Connection),
		eventCh:        make(chan event),
		stopCh:         make(chan struct{}),
	}
}

// ActiveConnections returns the number of connections in the table.
func (m *Multiplexer) ActiveConnections() int {
	return int(m.active.Load())
}

// Serve runs until Close is called, the listener fails, or a connection
// violates the framing. All connections are closed when it returns.
func (m *Multiplexer) Serve() error {
	defer m.closeAll()
	go m.acceptLoop()
	for {
		select {
		case <-m.stopCh:
			return nil
		case ev := <-m.eventCh:
			switch ev.kind {
			case eventAccepted:
				m.admit(ev.nc)
			case eventData:
				if err := m.base.Receive(ev.conn.parser, ev.data); err != nil {
					m.Close()
					return err
				}
			case eventHangup:
				m.drop(ev.conn, ev.err)
			case eventListenerClosed:
				return ev.err
			}
		}
	}
}

// Close stops serving and closes the listener.
func (m *Multiplexer) Close() error {
	var err error
	m.stop.Do(func() {
		close(m.stopCh)
		err = m.Listener.Close()
	})
	return err
}

func (m *Multiplexer) post(ev event) bool {
	select {
	case m.eventCh <- ev:
		return true
	case <-m.stopCh:
		return false
	}
}

func (m *Multiplexer) acceptLoop() {
	for {
		nc, err := m.Listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				m.post(event{kind: eventListenerClosed, err: err})
				return
			}
			glog.Warningf("bus %s: accept: %v", m.base.Bus(), err)
			select {
			case <-m.stopCh:
				return
			case <-time.After(acceptRetryDelay):
			}
			continue
		}
		if !m.post(event{kind: eventAccepted, nc: nc}) {
			nc.Close()
			return
		}
	}
}

func (m *Multiplexer) readLoop(c *Connection) {
	buf := make([]byte, m.base.RecvBufferSize)
	for {
		n, err := c.Conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !m.post(event{kind: eventData, conn: c, data: data}) {
				return
			}
		}
		if err != nil {
			m.post(event{kind: eventHangup, conn: c, err: err})
			return
		}
	}
}

func (m *Multiplexer) admit(nc net.Conn) {
	if len(m.conns) >= m.MaxConnections {
		glog.Warningf("bus %s: connection table full (%d), rejecting %s",
			m.base.Bus(), m.MaxConnections, nc.RemoteAddr())
		m.base.Metrics().RejectedPeers.Inc()
		nc.Close()
		return
	}
	m.nextID++
	c := &Connection{ID: m.nextID, Conn: nc, parser: m.base.NewParser()}
	m.conns[c.ID] = c
	m.updateActive()
	glog.V(1).Infof("bus %s: connection %d from %s", m.base.Bus(), c.ID, nc.RemoteAddr())
	go m.readLoop(c)
}

func (m *Multiplexer) drop(c *Connection, err error) {
	if _, ok := m.conns[c.ID]; !ok {
		return
	}
	delete(m.conns, c.ID)
	c.Conn.Close()
	m.updateActive()
	glog.V(1).Infof("bus %s: connection %d closed: %v", m.base.Bus(), c.ID, err)
}

func (m *Multiplexer) closeAll() {
	m.Close()
	for id, c := range m.conns {
		c.Conn.Close()
		delete(m.conns, id)
	}
	m.updateActive()
}

func (m *Multiplexer) updateActive() {
	m.active.Store(int32(len(m.conns)))
	m.base.Metrics().ActiveConnections.Set(float64(len(m.conns)))
}
