//go:build linux

package serial

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// OpenPort opens and configures the character device. The device is
// opened non-blocking so closing it unblocks a pending Read.
func OpenPort(conf *Config) (io.ReadWriteCloser, error) {
	c := conf.Effective()
	fd, err := unix.Open(c.DevName, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", c.DevName)
	}
	f := os.NewFile(uintptr(fd), c.DevName)
	if err = configure(f, &c); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "configure %s", c.DevName)
	}
	return f, nil
}

func configure(f *os.File, c *Config) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	err = rc.Control(func(fd uintptr) {
		t, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
		if err != nil {
			opErr = err
			return
		}
		applyTermios(t, c)
		if err = unix.IoctlSetInt(int(fd), unix.TCFLSH, unix.TCIFLUSH); err != nil {
			opErr = err
			return
		}
		opErr = unix.IoctlSetTermios(int(fd), unix.TCSETS, t)
	})
	if err != nil {
		return err
	}
	return opErr
}

// applyTermios puts the line into raw mode with the effective settings.
func applyTermios(t *unix.Termios, c *Config) {
	speed := baudFlag(c.Speed)
	t.Cflag = speed | charSizeFlag(c.Bits) | parityFlags(c) | unix.CLOCAL | unix.CREAD
	t.Ispeed, t.Ospeed = speed, speed
	t.Iflag = unix.IGNPAR
	t.Oflag = 0
	t.Lflag = 0
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
}

func baudFlag(b Baudrate) uint32 {
	switch b {
	case Baud9600:
		return unix.B9600
	case Baud19200:
		return unix.B19200
	case Baud38400:
		return unix.B38400
	case Baud57600:
		return unix.B57600
	case Baud230400:
		return unix.B230400
	}
	return unix.B115200
}

func charSizeFlag(bits int) uint32 {
	switch bits {
	case 5:
		return unix.CS5
	case 6:
		return unix.CS6
	case 7:
		return unix.CS7
	}
	return unix.CS8
}

func parityFlags(c *Config) uint32 {
	if !c.UseParityBit {
		return 0
	}
	switch c.Parity {
	case ParityOdd:
		return unix.PARENB | unix.PARODD
	case ParityEven:
		return unix.PARENB
	}
	return 0
}
