package stream

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/linkdrv/pkg/link"
)

type received struct {
	bus  link.BusID
	data string
}

func newTestDriver(t *testing.T, ch chan received) *Driver {
	d := New(link.DeliverFunc(func(bus link.BusID, data []byte) {
		ch <- received{bus: bus, data: string(data)}
	}))
	d.FrameSize = 4
	d.OnFatal = func(err error) { t.Errorf("fatal: %v", err) }
	return d
}

func TestDriverSendReceive(t *testing.T) {
	rxCh := make(chan received, 16)
	rx := newTestDriver(t, rxCh)
	require.NoError(t, rx.Init(context.Background(), 7, 1,
		&link.IPConfig{Address: "127.0.0.1"},
		&link.IPConfig{Address: "127.0.0.1", Port: 1}))
	defer rx.Close()
	port := rx.Addr().(*net.TCPAddr).Port

	tx := newTestDriver(t, make(chan received))
	require.NoError(t, tx.Init(context.Background(), 8, 2,
		&link.IPConfig{Address: "127.0.0.1"},
		&link.IPConfig{Address: "127.0.0.1", Port: port}))
	defer tx.Close()

	msgs := []string{"Hello", "", string([]byte{0x41, 0x00, 0xff, 0x42}), "Goodbye"}
	for _, msg := range msgs {
		require.NoError(t, tx.Send([]byte(msg)))
	}
	got := make(map[string]bool)
	for range msgs {
		select {
		case r := <-rxCh:
			require.Equal(t, link.BusID(7), r.bus)
			got[r.data] = true
		case <-time.After(waitTimeout):
			t.Fatalf("timeout, received %v", got)
		}
	}
	for _, msg := range msgs {
		require.True(t, got[msg], "missing %q", msg)
	}
	require.Eventually(t, func() bool {
		return rx.ActiveConnections() == 0
	}, waitTimeout, 10*time.Millisecond)
}

func TestDriverConcurrentSend(t *testing.T) {
	rxCh := make(chan received, 64)
	rx := newTestDriver(t, rxCh)
	rx.MaxConnections = 64
	require.NoError(t, rx.Init(context.Background(), 9, 1,
		&link.IPConfig{Address: "127.0.0.1"},
		&link.IPConfig{Address: "127.0.0.1", Port: 1}))
	defer rx.Close()
	port := rx.Addr().(*net.TCPAddr).Port

	tx := newTestDriver(t, nil)
	require.NoError(t, tx.Init(context.Background(), 10, 2,
		&link.IPConfig{Address: "127.0.0.1"},
		&link.IPConfig{Address: "127.0.0.1", Port: port}))
	defer tx.Close()

	const senders = 8
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tx.Send([]byte{0xfe, 0x00, 0xff, 'x', 'y', 'z'}))
		}()
	}
	wg.Wait()
	for i := 0; i < senders; i++ {
		select {
		case r := <-rxCh:
			require.Equal(t, string([]byte{0xfe, 0x00, 0xff, 'x', 'y', 'z'}), r.data)
		case <-time.After(waitTimeout):
			t.Fatal("timeout")
		}
	}
}

func TestDriverSendFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	d := newTestDriver(t, nil)
	require.Equal(t, link.ErrNotInitialized, d.Send([]byte("x")))
	require.NoError(t, d.Init(context.Background(), 11, 1,
		&link.IPConfig{Address: "127.0.0.1"},
		&link.IPConfig{Address: "127.0.0.1", Port: port}))
	require.Error(t, d.Send([]byte("x")))
	require.NoError(t, d.Close())
	require.Equal(t, link.ErrClosed, d.Send([]byte("x")))
}

func TestDriverInitErrors(t *testing.T) {
	d := New(nil)
	require.Error(t, d.Init(context.Background(), 12, 1,
		&link.IPConfig{Port: -1}, &link.IPConfig{}))

	d = New(nil)
	require.NoError(t, d.Init(context.Background(), 13, 1,
		&link.IPConfig{Address: "127.0.0.1"}, &link.IPConfig{Address: "127.0.0.1", Port: 1}))
	defer d.Close()
	require.Equal(t, link.ErrAlreadyInitialized, d.Init(context.Background(), 13, 1,
		&link.IPConfig{Address: "127.0.0.1"}, &link.IPConfig{Address: "127.0.0.1", Port: 1}))
}

func TestDriverContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := newTestDriver(t, nil)
	require.NoError(t, d.Init(ctx, 14, 1,
		&link.IPConfig{Address: "127.0.0.1"}, &link.IPConfig{Address: "127.0.0.1", Port: 1}))
	cancel()
	select {
	case <-d.Done():
	case <-time.After(waitTimeout):
		t.Fatal("driver not stopped")
	}
}
