package risk

// =============================================================================
// Conventions
// =============================================================================

// VaRConvention VaR 부호 규약
// ⭐ SSOT: 손실을 양수로 표현 (VaR=0.05 → 5% 손실 가능). VaR, CVaR, MaxDrawdown 모두 동일.
const VaRConvention = "loss_positive"

// RatioSentinel 분모(변동성)가 0일 때 보고하는 Sharpe/Sortino 상한
const RatioSentinel = 10.0

// TradingDaysPerYear 연율화 기준
const TradingDaysPerYear = 252

// =============================================================================
// Result Types
// =============================================================================

// VaRResult VaR 계산 결과
// ⭐ SSOT: VaR/CVaR는 손실을 양수로 표현
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
}

// PathStats 가치 경로 하나의 성과 지표
type PathStats struct {
	TotalReturn    float64 `json:"totalReturn"`
	Volatility     float64 `json:"volatility"`  // 연율화
	MaxDrawdown    float64 `json:"maxDrawdown"` // 양수
	SharpeRatio    float64 `json:"sharpeRatio"`
	SortinoRatio   float64 `json:"sortinoRatio"`
	TimeUnderWater float64 `json:"timeUnderWater"` // 고점 미만 일수 비율
}
