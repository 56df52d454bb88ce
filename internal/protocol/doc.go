// Package protocol implements the two wire formats spoken by the intercom.
// The audio link carries raw little-endian 16-bit samples in unframed datagrams,
// and the command link carries single-byte commands over TCP.
package protocol
