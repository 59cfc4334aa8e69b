package live

import (
	"math"
	"sync"
)

// RMSLevel computes the root-mean-square level of a block of float
// samples. Used only for UI feedback; it never affects the data path.
func RMSLevel(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// CalculateRMSEnergy computes the root-mean-square energy of PCM audio.
// Input is assumed to be 16-bit signed little-endian PCM.
// Returns a value between 0.0 and 1.0.
func CalculateRMSEnergy(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < len(pcm)-1; i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(samples))
}

// CalculatePeakAmplitude returns the maximum absolute amplitude in the PCM data.
// Returns a value between 0.0 and 1.0.
func CalculatePeakAmplitude(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}

	var maxAbs float64
	for i := 0; i < len(pcm)-1; i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		// Use float64 to avoid overflow when negating -32768
		abs := math.Abs(float64(sample))
		if abs > maxAbs {
			maxAbs = abs
		}
	}

	return maxAbs / 32768.0
}

// BlockAssembler regroups variable-sized sample deliveries from the input
// device into fixed-size blocks. The input device delivers serially, but
// the assembler is safe for concurrent use anyway.
type BlockAssembler struct {
	mu        sync.Mutex
	buf       []float32
	blockSize int
}

// NewBlockAssembler creates an assembler producing blocks of blockSize samples.
func NewBlockAssembler(blockSize int) *BlockAssembler {
	return &BlockAssembler{
		buf:       make([]float32, 0, blockSize*2),
		blockSize: blockSize,
	}
}

// Write appends samples and invokes emit once per completed block, in order.
func (a *BlockAssembler) Write(samples []float32, emit func(block []float32)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buf = append(a.buf, samples...)
	for len(a.buf) >= a.blockSize {
		block := make([]float32, a.blockSize)
		copy(block, a.buf[:a.blockSize])
		a.buf = a.buf[a.blockSize:]
		emit(block)
	}
}

// Pending returns the number of buffered samples not yet forming a block.
func (a *BlockAssembler) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buf)
}

// Reset discards any buffered samples.
func (a *BlockAssembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf = a.buf[:0]
}
