package link

import "errors"

var (
	// ErrNotInitialized indicates Send is called before Init.
	ErrNotInitialized = errors.New("driver not initialized")
	// ErrAlreadyInitialized indicates Init is called twice.
	ErrAlreadyInitialized = errors.New("driver already initialized")
	// ErrClosed indicates the driver has been closed.
	ErrClosed = errors.New("driver closed")
	// ErrShortWrite indicates the transport accepted no bytes.
	ErrShortWrite = errors.New("short write")
	// ErrInvalidAddress indicates the address can't be parsed.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrInvalidPort indicates the port is out of range.
	ErrInvalidPort = errors.New("invalid port")
)
