// Package link defines the driver model shared by all point-to-point
// transports: a Driver moves opaque messages to a peer instance of the
// same driver and hands every decoded message to a Broker.
//
// Concrete transports live in the sub-packages stream (TCP), datagram
// (UDP) and serial (character devices).
package link
