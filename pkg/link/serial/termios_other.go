//go:build !linux

package serial

import (
	"io"

	"github.com/pkg/errors"
)

// OpenPort is only supported on linux.
func OpenPort(conf *Config) (io.ReadWriteCloser, error) {
	return nil, errors.Errorf("open %s: serial ports are only supported on linux", conf.DevName)
}
