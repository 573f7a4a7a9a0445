package optimizer

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ridgeFactor 특이 공분산 보정용 대각 가산 비율 (평균 분산 대비)
const ridgeFactor = 1e-8

// minVariance floors a variance in the diagonal fallback
const minVariance = 1e-12

// Inverter 공분산 역행렬 전략
// ⭐ SSOT: 닫힌 형식 해를 쓰는 목적 함수는 모두 이 인터페이스로만 역행렬을 구함
type Inverter interface {
	Invert(cov *mat.SymDense) (*mat.Dense, error)
}

// GonumInverter inverts with LU (gonum), regularizing singular matrices.
// 실패 시 ridge 보정 후 재시도, 그래도 실패하면 대각 역행렬.
type GonumInverter struct{}

// Invert implements Inverter
func (GonumInverter) Invert(cov *mat.SymDense) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(cov); err == nil {
		return &inv, nil
	}

	n := cov.SymmetricDim()
	ridge := mat.NewSymDense(n, nil)
	ridge.CopySym(cov)
	eps := ridgeFactor * math.Max(meanDiag(cov), minVariance)
	for i := 0; i < n; i++ {
		ridge.SetSym(i, i, ridge.At(i, i)+eps)
	}
	if err := inv.Inverse(ridge); err == nil {
		return &inv, nil
	}

	return diagonalInverse(cov), nil
}

// ReferenceInverter 2×2 닫힌 형식 역행렬, 그 외 차원은 대각 근사
type ReferenceInverter struct{}

// Invert implements Inverter
func (ReferenceInverter) Invert(cov *mat.SymDense) (*mat.Dense, error) {
	if cov.SymmetricDim() == 2 {
		a, b, d := cov.At(0, 0), cov.At(0, 1), cov.At(1, 1)
		det := a*d - b*b
		if math.Abs(det) > minVariance*minVariance {
			return mat.NewDense(2, 2, []float64{d / det, -b / det, -b / det, a / det}), nil
		}
	}
	return diagonalInverse(cov), nil
}

func diagonalInverse(cov *mat.SymDense) *mat.Dense {
	n := cov.SymmetricDim()
	inv := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		inv.Set(i, i, 1/math.Max(cov.At(i, i), minVariance))
	}
	return inv
}

func meanDiag(cov *mat.SymDense) float64 {
	n := cov.SymmetricDim()
	var sum float64
	for i := 0; i < n; i++ {
		sum += cov.At(i, i)
	}
	return sum / float64(n)
}

// covMul returns Σw
func covMul(cov *mat.SymDense, w []float64) []float64 {
	var out mat.VecDense
	out.MulVec(cov, mat.NewVecDense(len(w), w))
	return out.RawVector().Data
}

// portfolioVariance returns w'Σw (never negative)
func portfolioVariance(cov *mat.SymDense, w []float64) float64 {
	v := mat.Inner(mat.NewVecDense(len(w), w), cov, mat.NewVecDense(len(w), w))
	if v < 0 {
		return 0
	}
	return v
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// ClipNormalize projects weights onto {0 ≤ w ≤ cap, Σw = 1}.
// 음수/NaN은 0으로 자르고, cap 초과분은 cap 미만 자산에 비율대로 재분배.
// cap·n ≥ 1 가정 (Constraints.Validate에서 보장).
func ClipNormalize(w []float64, cap float64) []float64 {
	n := len(w)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if cap <= 0 || cap > 1 {
		cap = 1
	}

	var sum float64
	for i, v := range w {
		if v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = v
			sum += v
		}
	}
	if sum <= 0 {
		for i := range out {
			out[i] = 1 / float64(n)
		}
		return out
	}

	fixed := make([]bool, n)
	for iter := 0; iter <= n; iter++ {
		var freeSum float64
		fixedCount, freeCount := 0, 0
		for i := range out {
			if fixed[i] {
				fixedCount++
			} else {
				freeSum += out[i]
				freeCount++
			}
		}
		if freeCount == 0 {
			break
		}
		remaining := 1 - cap*float64(fixedCount)
		if remaining < 0 {
			remaining = 0
		}

		changed := false
		for i := range out {
			if fixed[i] {
				out[i] = cap
				continue
			}
			if freeSum > 0 {
				out[i] = out[i] / freeSum * remaining
			} else {
				out[i] = remaining / float64(freeCount)
			}
			if out[i] > cap {
				fixed[i] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for i := range out {
		if fixed[i] {
			out[i] = cap
		}
	}
	return out
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}
