// Package framing provides the escape-coded message framing shared by
// all link drivers.
package framing

// A message is carried on the wire as
//
//	START | escaped payload | STOP
//
// where any literal START, STOP or ESCAPE inside the payload is prefixed
// by ESCAPE. There is no length field and no checksum, so the framing
// only recovers message boundaries; it doesn't detect corruption.
//
// A message larger than the sender's frame buffer is split over several
// consecutive transport writes. The receiver doesn't care about the split:
// the parser consumes bytes one at a time regardless of how they arrive.
