// Package audio wraps raw PCM speech samples in WAV containers and reads
// them back for validation.
//
// The speech backend returns headerless 16-bit little-endian PCM; browsers
// need a container before an <audio> element will play it. The container
// written here is the minimal 44-byte RIFF layout with a single data chunk.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Synthesized speech format.
const (
	SampleRate    = 24000
	Channels      = 1
	BitsPerSample = 16
)

const headerSize = 44

// wavHeader is the 44-byte RIFF header preceding the PCM payload.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
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
	Subchunk2Size uint32  // PCM byte count
}

// Info describes a decoded WAV container.
type Info struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataLen       int
}

// EncodeWAV wraps raw little-endian PCM bytes in a WAV container.
func EncodeWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataLen := uint32(len(pcm))
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(headerSize-8) + dataLen,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * bitsPerSample / 8),
		BlockAlign:    uint16(channels * bitsPerSample / 8),
		BitsPerSample: uint16(bitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataLen,
	}

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(pcm)))
	_ = binary.Write(buf, binary.LittleEndian, header)
	buf.Write(pcm)
	return buf.Bytes()
}

// DecodeWAV parses a WAV container, returning its format info and PCM payload.
func DecodeWAV(data []byte) (Info, []byte, error) {
	if len(data) < headerSize {
		return Info{}, nil, fmt.Errorf("wav too short: need at least %d bytes, got %d", headerSize, len(data))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return Info{}, nil, fmt.Errorf("reading wav header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return Info{}, nil, fmt.Errorf("invalid wav: missing RIFF marker")
	}
	if string(header.Format[:]) != "WAVE" {
		return Info{}, nil, fmt.Errorf("invalid wav: missing WAVE marker")
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return Info{}, nil, fmt.Errorf("invalid wav: missing fmt chunk")
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return Info{}, nil, fmt.Errorf("invalid wav: missing data chunk")
	}
	if header.AudioFormat != 1 {
		return Info{}, nil, fmt.Errorf("unsupported wav format %d: only PCM", header.AudioFormat)
	}
	if int(header.Subchunk2Size) > len(data)-headerSize {
		return Info{}, nil, fmt.Errorf("truncated wav: data chunk claims %d bytes, %d available",
			header.Subchunk2Size, len(data)-headerSize)
	}

	info := Info{
		SampleRate:    int(header.SampleRate),
		Channels:      int(header.NumChannels),
		BitsPerSample: int(header.BitsPerSample),
		DataLen:       int(header.Subchunk2Size),
	}
	return info, data[headerSize : headerSize+info.DataLen], nil
}
