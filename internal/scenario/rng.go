package scenario

import (
	"math"
	"math/rand/v2"
)

// RNG 명시적으로 시드되는 난수 생성기
// ⭐ SSOT: 전역 난수 상태 사용 금지. 시나리오마다 (seed, stream)으로 독립 스트림 생성
type RNG struct {
	src      *rand.Rand
	spare    float64
	hasSpare bool
}

// NewRNG creates a PCG-backed generator for one (seed, stream) pair
func NewRNG(seed, stream uint64) *RNG {
	return &RNG{src: rand.New(rand.NewPCG(seed, stream))}
}

// Float64 returns a uniform draw in [0, 1)
func (r *RNG) Float64() float64 {
	return r.src.Float64()
}

// NormFloat64 returns a standard normal draw (Box–Muller, pairs cached)
func (r *RNG) NormFloat64() float64 {
	if r.hasSpare {
		r.hasSpare = false
		return r.spare
	}

	// u1 ∈ (0, 1] so log(u1) is finite
	u1 := 1.0 - r.src.Float64()
	u2 := r.src.Float64()
	radius := math.Sqrt(-2 * math.Log(u1))
	theta := 2 * math.Pi * u2

	r.spare = radius * math.Sin(theta)
	r.hasSpare = true
	return radius * math.Cos(theta)
}

// streamID encodes the generator kind and scenario index into a PCG stream
func streamID(kind int, index int) uint64 {
	return uint64(kind)<<32 | uint64(uint32(index))
}

const (
	streamHistorical = 1
	streamMacro      = 2
	streamMonteCarlo = 3
)
