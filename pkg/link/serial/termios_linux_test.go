//go:build linux

package serial

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/robotalks/linkdrv/pkg/framing"
	"github.com/robotalks/linkdrv/pkg/link"
)

func TestApplyTermios(t *testing.T) {
	testCases := []struct {
		conf  Config
		cflag uint32
	}{
		{Config{Speed: Baud9600, Bits: 8}, unix.B9600 | unix.CS8},
		{Config{Speed: Baud57600, Bits: 7, Parity: ParityOdd, UseParityBit: true}, unix.B57600 | unix.CS7 | unix.PARENB | unix.PARODD},
		{Config{Speed: Baud230400, Bits: 5, Parity: ParityEven, UseParityBit: true}, unix.B230400 | unix.CS5 | unix.PARENB},
		{Config{Speed: Baud19200, Bits: 6}, unix.B19200 | unix.CS6},
		{Config{Speed: Baud38400, Bits: 8}, unix.B38400 | unix.CS8},
		{Config{Speed: Baud115200, Bits: 8}, unix.B115200 | unix.CS8},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d-%d-%s", tc.conf.Speed, tc.conf.Bits, tc.conf.Parity), func(t *testing.T) {
			tio := unix.Termios{Iflag: unix.ICRNL | unix.IXON, Oflag: unix.OPOST, Lflag: unix.ICANON | unix.ECHO}
			applyTermios(&tio, &tc.conf)
			require.Equal(t, tc.cflag|unix.CLOCAL|unix.CREAD, tio.Cflag)
			require.Equal(t, uint32(unix.IGNPAR), tio.Iflag)
			require.Zero(t, tio.Oflag)
			require.Zero(t, tio.Lflag)
			require.Equal(t, uint8(1), tio.Cc[unix.VMIN])
		})
	}
}

// openPTY returns the master side and the path of the slave side.
func openPTY(t *testing.T) (*os.File, string) {
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	t.Cleanup(func() { master.Close() })
	fd := int(master.Fd())
	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	require.NoError(t, err)
	require.NoError(t, unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0))
	return master, fmt.Sprintf("/dev/pts/%d", n)
}

func TestDriverOverPTY(t *testing.T) {
	master, slave := openPTY(t)

	msgCh := make(chan string, 4)
	d := New(link.DeliverFunc(func(_ link.BusID, data []byte) {
		msgCh <- string(data)
	}))
	d.OnFatal = func(err error) { t.Errorf("fatal: %v", err) }
	require.NoError(t, d.Init(context.Background(), 40, 1,
		&Config{DevName: slave, Speed: Baud115200, Bits: 8}, nil))
	defer d.Close()

	_, err := master.Write(framing.Encode([]byte("Hello")))
	require.NoError(t, err)
	select {
	case msg := <-msgCh:
		require.Equal(t, "Hello", msg)
	case <-time.After(5 * time.Second):
		t.Fatal("message not delivered")
	}

	payload := []byte{0x41, 0x00, 0xff, 0x42}
	require.NoError(t, d.Send(payload))
	expected := framing.Encode(payload)
	got := make([]byte, 0, len(expected))
	buf := make([]byte, 64)
	for len(got) < len(expected) {
		n, err := master.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	require.Equal(t, expected, got)
}

func TestOpenPortMissingDevice(t *testing.T) {
	_, err := OpenPort(&Config{DevName: "/dev/does-not-exist"})
	require.Error(t, err)
}
