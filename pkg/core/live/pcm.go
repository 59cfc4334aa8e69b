package live

import (
	"encoding/base64"
	"encoding/binary"
)

// EncodePCM16 converts float samples to 16-bit signed little-endian PCM.
// Each sample is multiplied by 32768 and truncated to int16. Samples
// outside [-1, 1] wrap per fixed-width integer truncation; they are not
// clamped.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(int64(float64(s) * 32768))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// DecodePCM16 converts 16-bit signed little-endian PCM back to float
// samples in [-1, 1). Returns a malformed-audio error if the byte length
// is odd.
func DecodePCM16(pcm []byte) ([]float32, error) {
	if len(pcm)%2 != 0 {
		return nil, NewMalformedAudioDataError(len(pcm))
	}
	out := make([]float32, len(pcm)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(v) / 32768.0
	}
	return out, nil
}

// EncodeTransport encodes binary media for the text-safe wire transport.
// DecodeTransport inverts it exactly for all byte sequences.
func EncodeTransport(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeTransport decodes transport-encoded media back to bytes.
func DecodeTransport(text string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(text)
}
