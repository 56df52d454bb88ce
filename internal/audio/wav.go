package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/datacounter"
)

// Container parameters for capture output
const (
	SampleRate    = 22050
	NumChannels   = 1
	BitsPerSample = 16

	wavHeaderSize  = 44
	wavFormatPCM   = 1
	bytesPerSample = BitsPerSample / 8
)

// WAVHeader represents the canonical 44-byte header of a PCM WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// WAVInfo holds basic information about a WAV file
type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumSamples    uint32  `json:"num_samples"`
}

func newWAVHeader(numSamples, sampleRate int) WAVHeader {
	dataSize := uint32(numSamples * NumChannels * bytesPerSample)
	blockAlign := uint16(NumChannels * bytesPerSample)

	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     wavHeaderSize - 8 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   wavFormatPCM,
		NumChannels:   NumChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// WriteWAV writes mono 16-bit PCM samples to w as a WAV stream
func WriteWAV(w io.Writer, samples []int16, sampleRate int) error {
	if len(samples) == 0 {
		return fmt.Errorf("cannot encode empty audio samples")
	}

	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	if err := binary.Write(w, binary.LittleEndian, newWAVHeader(len(samples), sampleRate)); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}

	return nil
}

// WriteWAVFile creates (or truncates) path and writes samples to it.
// It returns the number of bytes written. If writing fails the file is
// removed, so a failed capture never leaves a partial container behind.
func WriteWAVFile(path string, samples []int16, sampleRate int) (_ uint64, err error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			err = multierror.Append(err, fmt.Errorf("failed to close %s: %w", path, closeErr)).ErrorOrNil()
		}
		if err == nil {
			return
		}
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			err = multierror.Append(err, fmt.Errorf("failed to remove %s: %w", path, removeErr))
		}
	}()

	counter := datacounter.NewWriterCounter(file)
	if err := WriteWAV(counter, samples, sampleRate); err != nil {
		return counter.Count(), fmt.Errorf("failed to write %s: %w", path, err)
	}

	return counter.Count(), nil
}

// VerifyWAVFile reads back a written capture and checks that it holds
// exactly frames samples at sampleRate.
func VerifyWAVFile(path string, frames, sampleRate int) (*WAVInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	info, err := GetWAVInfo(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	samples, rate, err := DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if rate != sampleRate || len(samples) != frames {
		return nil, fmt.Errorf("%s holds %d frames at %d Hz, expected %d at %d Hz",
			path, len(samples), rate, frames, sampleRate)
	}

	return info, nil
}

// DecodeWAV decodes WAV format data back to PCM-16 samples
func DecodeWAV(data []byte) ([]int16, int, error) {
	header, err := readWAVHeader(data)
	if err != nil {
		return nil, 0, err
	}

	if header.AudioFormat != wavFormatPCM {
		return nil, 0, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	}

	if header.BitsPerSample != BitsPerSample {
		return nil, 0, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", header.BitsPerSample)
	}

	if header.NumChannels != NumChannels {
		return nil, 0, fmt.Errorf("unsupported channel count: %d (only mono is supported)", header.NumChannels)
	}

	numSamples := int(header.Subchunk2Size) / bytesPerSample
	if numSamples <= 0 {
		return nil, 0, fmt.Errorf("no audio data found")
	}

	if len(data)-wavHeaderSize < numSamples*bytesPerSample {
		return nil, 0, fmt.Errorf("truncated audio data: header declares %d bytes, got %d",
			header.Subchunk2Size, len(data)-wavHeaderSize)
	}

	samples := make([]int16, numSamples)
	if err := binary.Read(bytes.NewReader(data[wavHeaderSize:]), binary.LittleEndian, samples); err != nil {
		return nil, 0, fmt.Errorf("failed to read audio samples: %w", err)
	}

	return samples, int(header.SampleRate), nil
}

// ValidateWAV validates the RIFF layout without decoding the audio data
func ValidateWAV(data []byte) error {
	if len(data) < wavHeaderSize {
		return fmt.Errorf("WAV data too short: need at least %d bytes, got %d", wavHeaderSize, len(data))
	}

	switch {
	case string(data[0:4]) != "RIFF":
		return fmt.Errorf("invalid WAV file: missing RIFF header")
	case string(data[8:12]) != "WAVE":
		return fmt.Errorf("invalid WAV file: missing WAVE format")
	case string(data[12:16]) != "fmt ":
		return fmt.Errorf("invalid WAV file: missing fmt chunk")
	case string(data[36:40]) != "data":
		return fmt.Errorf("invalid WAV file: missing data chunk")
	}

	return nil
}

// GetWAVInfo extracts metadata from a WAV file
func GetWAVInfo(data []byte) (*WAVInfo, error) {
	header, err := readWAVHeader(data)
	if err != nil {
		return nil, err
	}

	if header.SampleRate == 0 || header.BitsPerSample < 8 {
		return nil, fmt.Errorf("invalid WAV header: sample rate %d, bit depth %d",
			header.SampleRate, header.BitsPerSample)
	}

	numSamples := header.Subchunk2Size / (uint32(header.BitsPerSample) / 8)

	return &WAVInfo{
		SampleRate:    header.SampleRate,
		Channels:      header.NumChannels,
		BitsPerSample: header.BitsPerSample,
		Duration:      float64(numSamples) / float64(header.SampleRate),
		DataSize:      header.Subchunk2Size,
		NumSamples:    numSamples,
	}, nil
}

func readWAVHeader(data []byte) (*WAVHeader, error) {
	if err := ValidateWAV(data); err != nil {
		return nil, err
	}

	var header WAVHeader
	if err := binary.Read(bytes.NewReader(data[:wavHeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	return &header, nil
}
