package provision

import (
	"bytes"
	"encoding/binary"
)

const (
	warmupSampleRate = 16000
	warmupSeconds    = 1
)

// silentWAV returns a mono 16-bit PCM WAV of the given length holding only silence.
func silentWAV(sampleRate, seconds int) []byte {
	samples := sampleRate * seconds
	dataSize := samples * 2
	fileSize := 36 + dataSize

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, int32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, int32(16))
	_ = binary.Write(&buf, binary.LittleEndian, int16(1))
	_ = binary.Write(&buf, binary.LittleEndian, int16(1))
	_ = binary.Write(&buf, binary.LittleEndian, int32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, int32(sampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, int16(2))
	_ = binary.Write(&buf, binary.LittleEndian, int16(16))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, int32(dataSize))
	buf.Write(make([]byte, dataSize))

	return buf.Bytes()
}
