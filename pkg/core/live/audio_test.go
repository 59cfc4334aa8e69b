package live

import (
	"math"
	"testing"
)

func TestRMSLevel(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float32
		expected float64
	}{
		{
			name:     "empty",
			samples:  nil,
			expected: 0.0,
		},
		{
			name:     "silence",
			samples:  []float32{0, 0, 0, 0},
			expected: 0.0,
		},
		{
			name:     "full scale",
			samples:  []float32{1, 1, 1, 1},
			expected: 1.0,
		},
		{
			name:     "half amplitude",
			samples:  []float32{0.5, 0.5, 0.5, 0.5},
			expected: 0.5,
		},
		{
			name:     "mixed signal",
			samples:  []float32{0.5, -0.5, 0.5, -0.5},
			expected: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RMSLevel(tt.samples)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("expected RMS %.3f, got %.3f", tt.expected, result)
			}
		})
	}
}

func TestCalculateRMSEnergy(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int16
		expected float64
	}{
		{
			name:     "silence",
			samples:  []int16{0, 0, 0, 0},
			expected: 0.0,
		},
		{
			name:     "max amplitude",
			samples:  []int16{32767, 32767, 32767, 32767},
			expected: 1.0,
		},
		{
			name:     "half amplitude",
			samples:  []int16{16384, 16384, 16384, 16384},
			expected: 0.5,
		},
		{
			name:     "mixed signal",
			samples:  []int16{16384, -16384, 16384, -16384},
			expected: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Convert samples to PCM bytes
			pcm := make([]byte, len(tt.samples)*2)
			for i, s := range tt.samples {
				pcm[i*2] = byte(s & 0xFF)
				pcm[i*2+1] = byte((s >> 8) & 0xFF)
			}

			result := CalculateRMSEnergy(pcm)
			if math.Abs(result-tt.expected) > 0.01 {
				t.Errorf("expected RMS %.3f, got %.3f", tt.expected, result)
			}
		})
	}
}

func TestCalculatePeakAmplitude(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int16
		expected float64
	}{
		{
			name:     "silence",
			samples:  []int16{0, 0, 0, 0},
			expected: 0.0,
		},
		{
			name:     "single peak",
			samples:  []int16{0, 16384, 0, 0},
			expected: 0.5,
		},
		{
			name:     "negative peak",
			samples:  []int16{0, -32768, 0, 0},
			expected: 1.0,
		},
		{
			name:     "empty",
			samples:  nil,
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := make([]byte, len(tt.samples)*2)
			for i, s := range tt.samples {
				pcm[i*2] = byte(s & 0xFF)
				pcm[i*2+1] = byte((s >> 8) & 0xFF)
			}

			result := CalculatePeakAmplitude(pcm)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("expected peak %.3f, got %.3f", tt.expected, result)
			}
		})
	}
}

func TestBlockAssembler(t *testing.T) {
	t.Run("regroups into fixed blocks", func(t *testing.T) {
		a := NewBlockAssembler(4)
		var blocks [][]float32
		emit := func(block []float32) {
			blocks = append(blocks, block)
		}

		// 3 + 3 samples: one full block, two pending.
		a.Write([]float32{1, 2, 3}, emit)
		if len(blocks) != 0 {
			t.Fatalf("expected no block after 3 samples, got %d", len(blocks))
		}
		a.Write([]float32{4, 5, 6}, emit)
		if len(blocks) != 1 {
			t.Fatalf("expected 1 block after 6 samples, got %d", len(blocks))
		}
		want := []float32{1, 2, 3, 4}
		for i, v := range want {
			if blocks[0][i] != v {
				t.Errorf("block[0][%d] = %v, want %v", i, blocks[0][i], v)
			}
		}
		if a.Pending() != 2 {
			t.Errorf("expected 2 pending samples, got %d", a.Pending())
		}
	})

	t.Run("large write emits multiple blocks in order", func(t *testing.T) {
		a := NewBlockAssembler(2)
		var blocks [][]float32
		a.Write([]float32{1, 2, 3, 4, 5}, func(block []float32) {
			blocks = append(blocks, block)
		})
		if len(blocks) != 2 {
			t.Fatalf("expected 2 blocks, got %d", len(blocks))
		}
		if blocks[0][0] != 1 || blocks[1][0] != 3 {
			t.Errorf("blocks out of order: %v", blocks)
		}
		if a.Pending() != 1 {
			t.Errorf("expected 1 pending sample, got %d", a.Pending())
		}
	})

	t.Run("reset discards pending", func(t *testing.T) {
		a := NewBlockAssembler(8)
		a.Write([]float32{1, 2, 3}, func([]float32) {
			t.Fatal("unexpected block")
		})
		a.Reset()
		if a.Pending() != 0 {
			t.Errorf("expected 0 pending after reset, got %d", a.Pending())
		}
	})
}
