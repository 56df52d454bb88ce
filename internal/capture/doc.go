// Package capture implements the UDP sample capture loop.
// A capture runs until its context is cancelled, then the collected stream is
// normalized and persisted as a WAV file.
package capture
