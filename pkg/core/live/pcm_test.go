package live

import (
	"bytes"
	"math"
	"testing"
)

func TestEncodePCM16KnownValues(t *testing.T) {
	tests := []struct {
		name   string
		sample float32
		want   int16
	}{
		{name: "zero", sample: 0, want: 0},
		{name: "half", sample: 0.5, want: 16384},
		{name: "negative half", sample: -0.5, want: -16384},
		{name: "negative full scale", sample: -1.0, want: -32768},
		{name: "positive full scale wraps", sample: 1.0, want: -32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := EncodePCM16([]float32{tt.sample})
			got := int16(pcm[0]) | int16(pcm[1])<<8
			if got != tt.want {
				t.Errorf("EncodePCM16(%v) = %d, want %d", tt.sample, got, tt.want)
			}
		})
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	samples := []float32{0, 0.25, -0.25, 0.5, -0.5, 0.999, -1.0, 0.123, -0.987}

	pcm := EncodePCM16(samples)
	if len(pcm) != len(samples)*2 {
		t.Fatalf("expected %d bytes, got %d", len(samples)*2, len(pcm))
	}

	decoded, err := DecodePCM16(pcm)
	if err != nil {
		t.Fatalf("DecodePCM16: %v", err)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}

	// One quantization step of error at most.
	const step = 1.0 / 32768.0
	for i := range samples {
		if math.Abs(float64(decoded[i]-samples[i])) > step {
			t.Errorf("sample %d: %v -> %v, off by more than one step", i, samples[i], decoded[i])
		}
	}
}

func TestDecodePCM16OddLength(t *testing.T) {
	_, err := DecodePCM16([]byte{0x01, 0x02, 0x03})
	if err == nil {
		t.Fatal("expected error for odd-length input")
	}
	if CodeOf(err) != CodeMalformedAudioData {
		t.Errorf("expected %s, got %s", CodeMalformedAudioData, CodeOf(err))
	}
}

func TestTransportRoundTrip(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0x00},
		{0xFF, 0x00, 0x7F, 0x80},
		bytes.Repeat([]byte{0xAB, 0xCD}, 1000),
	}

	for _, in := range inputs {
		text := EncodeTransport(in)
		out, err := DecodeTransport(text)
		if err != nil {
			t.Fatalf("DecodeTransport: %v", err)
		}
		if !bytes.Equal(in, out) {
			t.Errorf("round trip changed %d-byte input", len(in))
		}
	}
}
