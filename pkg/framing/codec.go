package framing

// Reserved bytes of the link protocol. Both ends of a link must agree on them.
const (
	StartByte  byte = 0x00
	StopByte   byte = 0xFF
	EscapeByte byte = 0xFE
)

// MinFrameSize is the smallest frame buffer Encoder accepts.
const MinFrameSize = 2

// IsReserved indicates b must be escaped when it appears in a payload.
func IsReserved(b byte) bool {
	return b == StartByte || b == StopByte || b == EscapeByte
}

// EncodedLen calculates the number of bytes data occupies on the wire,
// including START and STOP.
func EncodedLen(data []byte) int {
	n := len(data) + 2
	for _, b := range data {
		if IsReserved(b) {
			n++
		}
	}
	return n
}

// Encode encodes data as a single frame.
func Encode(data []byte) []byte {
	var enc Encoder
	enc.Reset(data)
	buf := make([]byte, EncodedLen(data))
	n, err := enc.Encode(buf)
	if err != nil {
		// buf holds EncodedLen(data) bytes, the whole frame always fits.
		panic(err)
	}
	return buf[:n]
}

// Encoder splits a message into frames which fit a fixed size buffer.
// Call Reset with the message, then Encode repeatedly, flushing every
// frame to the transport, until Done reports true.
type Encoder struct {
	data     []byte
	offset   int
	started  bool
	escape   bool
	finished bool
}

// Reset starts encoding a new message.
func (e *Encoder) Reset(data []byte) {
	e.data, e.offset = data, 0
	e.started, e.escape, e.finished = false, false, false
}

// Done indicates STOP has been emitted for the current message.
func (e *Encoder) Done() bool {
	return e.finished
}

// Offset returns the number of payload bytes fully encoded so far.
func (e *Encoder) Offset() int {
	return e.offset
}

// Encode fills dst with the next frame and returns its length.
// An escaped byte costs two output bytes: ESCAPE is written first and the
// literal follows in the next slot, possibly in the next frame. The input
// offset only advances once the literal is written.
func (e *Encoder) Encode(dst []byte) (int, error) {
	if e.finished {
		return 0, ErrEncodeFinished
	}
	if len(dst) < MinFrameSize {
		return 0, ErrBufferExhausted
	}

	n := 0
	if !e.started {
		dst[n] = StartByte
		n++
		e.started = true
	}

	for e.offset < len(e.data) {
		b := e.data[e.offset]
		switch {
		case e.escape:
			dst[n] = b
			e.offset++
			e.escape = false
		case IsReserved(b):
			dst[n] = EscapeByte
			e.escape = true
		default:
			dst[n] = b
			e.offset++
		}
		n++
		if n == len(dst) {
			return n, nil
		}
	}

	dst[n] = StopByte
	n++
	e.finished = true
	return n, nil
}
