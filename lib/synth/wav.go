package synth

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// wavHeader is a canonical 44-byte RIFF/WAVE header for a single PCM data
// chunk. All multi-byte fields are little-endian.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + data size
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 = integer PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

const (
	wavHeaderSize  = 44
	bytesPerSample = 2 // 16-bit PCM
)

// WAVSize returns the encoded container size in bytes for n samples. Handlers
// use it to set Content-Length before streaming.
func WAVSize(n int) int {
	return wavHeaderSize + n*bytesPerSample
}

// EncodeWAV wraps buf in a RIFF/WAVE container: single channel, 16-bit
// integer PCM at the given sample rate. Samples outside [-1, 1] are clamped.
//
// The writer is plain io.Writer rather than io.WriteSeeker because the buffer
// length is known up front, so the header can be emitted in one pass straight
// to an http.ResponseWriter.
func EncodeWAV(w io.Writer, buf []float64, sampleRate int) error {
	dataSize := uint32(len(buf) * bytesPerSample)

	hdr := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * bytesPerSample),
		BlockAlign:    bytesPerSample,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("synth: can't write WAV header: %w", err)
	}

	pcm := make([]int16, len(buf))
	for i, sample := range buf {
		pcm[i] = int16(math.Round(math.Max(-1, math.Min(1, sample)) * math.MaxInt16))
	}

	if err := binary.Write(w, binary.LittleEndian, pcm); err != nil {
		return fmt.Errorf("synth: can't write WAV samples: %w", err)
	}

	return nil
}
