package audio

import (
	"bytes"
	"encoding/binary"
)

const wavHeaderSize = 44

// EncodeWAV wraps raw PCM in a canonical RIFF/WAVE container.
func EncodeWAV(pcm []byte, f Format) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	dataLen := uint32(len(pcm))

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36)+dataLen)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.Channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(f.SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(f.ByteRate()))
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.BlockAlign()))
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.BitsPerSample))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataLen)
	buf.Write(pcm)
	return buf.Bytes()
}

// EncodeWAVBase64 decodes a merged base64 episode and wraps it as WAV.
func EncodeWAVBase64(merged string, f Format) ([]byte, error) {
	pcm, err := Decode(merged)
	if err != nil {
		return nil, err
	}
	return EncodeWAV(pcm, f), nil
}
