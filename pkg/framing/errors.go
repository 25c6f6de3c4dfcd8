package framing

import "errors"

var (
	// ErrBufferExhausted indicates the output buffer is too small to make progress.
	ErrBufferExhausted = errors.New("frame buffer exhausted")
	// ErrEncodeFinished indicates Encode was called after STOP was emitted.
	ErrEncodeFinished = errors.New("message already encoded")
	// ErrOverflow indicates a message exceeds the reassembly buffer.
	// The partial message is dropped.
	ErrOverflow = errors.New("reassembly buffer overflow")
)
