// Package audio handles sample accumulation, normalization and WAV encoding.
// Raw unsigned samples collected from the audio link are rescaled into the
// signed 16-bit range and written as a mono PCM WAV file.
package audio
