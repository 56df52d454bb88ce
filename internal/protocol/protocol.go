package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrInvalidLength is returned for console input that is not exactly one character
	ErrInvalidLength = errors.New("invalid command length")

	// ErrUnknownCommand is returned for a byte the firmware does not understand
	ErrUnknownCommand = errors.New("unknown command")
)

// Wire constants shared with the intercom firmware
const (
	// SampleSize is the width of one raw sample on the audio link
	SampleSize = 2

	// CommandSize is the width of one command on the command link
	CommandSize = 1
)

// Command is a single-byte instruction sent to the intercom
type Command byte

// Commands understood by the intercom firmware
const (
	CommandOpenDoor   Command = 'D'
	CommandListenOn   Command = 'L'
	CommandListenStop Command = 'S'
	CommandTalkOn     Command = 'T'
)

// AppendSamples decodes a datagram as unsigned 16-bit little-endian samples
// and appends them to dst. A trailing odd byte is not part of any sample and
// is dropped; the second return value reports whether that happened.
func AppendSamples(dst []uint16, datagram []byte) ([]uint16, bool) {
	count := len(datagram) / SampleSize
	for i := 0; i < count; i++ {
		dst = append(dst, binary.LittleEndian.Uint16(datagram[i*SampleSize:]))
	}
	return dst, len(datagram)%SampleSize != 0
}

// ParseCommand validates a single command byte
func ParseCommand(b byte) (Command, error) {
	cmd := Command(b)
	if !IsValidCommand(cmd) {
		return 0, fmt.Errorf("%w: 0x%02x", ErrUnknownCommand, b)
	}
	return cmd, nil
}

// ParseCommandLine validates console input. The line must hold exactly one
// character after surrounding whitespace has been removed by the caller.
func ParseCommandLine(line string) (Command, error) {
	if len(line) != CommandSize {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrInvalidLength, CommandSize, len(line))
	}
	return ParseCommand(line[0])
}

// IsValidCommand checks if the command is known to the firmware
func IsValidCommand(cmd Command) bool {
	switch cmd {
	case CommandOpenDoor, CommandListenOn, CommandListenStop, CommandTalkOn:
		return true
	default:
		return false
	}
}

// String returns a human-readable representation of the command
func (c Command) String() string {
	switch c {
	case CommandOpenDoor:
		return "OpenDoor"
	case CommandListenOn:
		return "ListenOn"
	case CommandListenStop:
		return "ListenStop"
	case CommandTalkOn:
		return "TalkOn"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", byte(c))
	}
}
