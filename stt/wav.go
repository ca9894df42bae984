package stt

import (
	"bytes"
	"encoding/binary"

	"go.aimuz.me/clearsight/audiocapture"
)

// encodeWAV wraps mono float32 samples in a 16-bit PCM WAV container.
func encodeWAV(samples []float32, sampleRate int) []byte {
	pcm := audiocapture.ToPCM16(samples)

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	le := binary.LittleEndian

	buf.WriteString("RIFF")
	_ = binary.Write(buf, le, uint32(36+len(pcm))) // file size - 8
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, le, struct {
		ChunkSize     uint32
		AudioFormat   uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{16, 1, 1, uint32(sampleRate), uint32(sampleRate * 2), 2, 16})

	buf.WriteString("data")
	_ = binary.Write(buf, le, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
