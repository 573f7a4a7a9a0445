package refdata

import (
	"math"

	"github.com/wonny/aegis-allocator/internal/contracts"
)

// Tables 주입 가능한 참조 데이터 전체
// ⭐ SSOT: 에피소드 충격, 자산 프로파일, ADV, 민감도 충격표는 코드 상수가 아니라 이 테이블에서만 조회
type Tables struct {
	Version        string                           `yaml:"version" json:"version"`
	Notional       float64                          `yaml:"notional" json:"notional"`
	DefaultADV     float64                          `yaml:"default_adv" json:"default_adv"`
	DefaultEpisode string                           `yaml:"default_episode" json:"default_episode"`
	Episodes       map[string]Episode               `yaml:"episodes" json:"episodes"`
	Assets         map[string]Profile               `yaml:"assets" json:"assets"`
	ClassDefaults  map[contracts.AssetClass]Profile `yaml:"class_defaults" json:"class_defaults"`
	Sensitivities  []Shock                          `yaml:"sensitivities" json:"sensitivities"`
	RiskDefaults   RiskDefaults                     `yaml:"risk_defaults" json:"risk_defaults"`
	Benchmarks     Benchmarks                       `yaml:"benchmarks" json:"benchmarks"`
	Synthetic      SyntheticSeries                  `yaml:"synthetic" json:"synthetic"`
	Regimes        []contracts.Regime               `yaml:"regimes" json:"regimes"`
}

// Episode 과거 위기 에피소드 충격 (호라이즌 전체 누적 수익률)
type Episode struct {
	Name          string                           `yaml:"name" json:"name"`
	EquityShock   float64                          `yaml:"equity_shock" json:"equity_shock"`
	BondShock     float64                          `yaml:"bond_shock" json:"bond_shock"`
	VolMultiplier float64                          `yaml:"vol_multiplier" json:"vol_multiplier"`
	ClassShocks   map[contracts.AssetClass]float64 `yaml:"class_shocks,omitempty" json:"class_shocks,omitempty"`
}

// ShockFor returns the episode shock for an asset class.
// 누락된 자산군: FixedIncome → bond_shock, 그 외 → equity_shock
func (e Episode) ShockFor(class contracts.AssetClass) float64 {
	if v, ok := e.ClassShocks[class]; ok {
		return v
	}
	if class == contracts.ClassFixedIncome {
		return e.BondShock
	}
	return e.EquityShock
}

// Profile 자산 프로파일 (연율 기준)
type Profile struct {
	Class          contracts.AssetClass `yaml:"class" json:"class"`
	ExpectedReturn float64              `yaml:"expected_return" json:"expected_return"`
	Volatility     float64              `yaml:"volatility" json:"volatility"`
	ADV            float64              `yaml:"adv" json:"adv"`
	Duration       float64              `yaml:"duration" json:"duration"`
	Beta           float64              `yaml:"beta" json:"beta"`
	Tags           []string             `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// HasTag reports whether the profile carries a tag
func (p Profile) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// DailyDrift returns the expected return per trading day
func (p Profile) DailyDrift() float64 {
	return p.ExpectedReturn / contracts.TradingDaysPerYear
}

// DailyVol returns the volatility per trading day
func (p Profile) DailyVol() float64 {
	return p.Volatility / math.Sqrt(contracts.TradingDaysPerYear)
}

// Well-known tags used by the macro generator and the sensitivity battery
const (
	TagInternational = "international"
	TagEmerging      = "em"
	TagEnergy        = "energy"
	TagCredit        = "credit"
)

// ExposureFactor 민감도 충격이 참조하는 노출 종류
type ExposureFactor string

const (
	FactorDuration      ExposureFactor = "duration"      // Σ w·duration (years)
	FactorInternational ExposureFactor = "international" // Σ w (intl 1.0, em 1.5)
	FactorEnergy        ExposureFactor = "energy"        // Σ w over energy-tagged assets
	FactorEquity        ExposureFactor = "equity"        // Σ w over non-fixed-income assets
)

// Shock 민감도 충격 정의 (폐형식: 노출 x에 대해)
//
//	return   = base.return + ReturnImpact·x
//	vol      = base.vol · (1 + VolScale·x)
//	drawdown = max(0, base.dd · (1 + DrawdownScale·x) + DrawdownImpact·x)
type Shock struct {
	ID             string         `yaml:"id" json:"id"`
	Description    string         `yaml:"description" json:"description"`
	Factor         ExposureFactor `yaml:"factor" json:"factor"`
	ReturnImpact   float64        `yaml:"return_impact" json:"return_impact"`
	VolScale       float64        `yaml:"vol_scale" json:"vol_scale"`
	DrawdownImpact float64        `yaml:"drawdown_impact" json:"drawdown_impact"`
	DrawdownScale  float64        `yaml:"drawdown_scale" json:"drawdown_scale"`
}

// RiskDefaults 시뮬레이션이 없을 때 사용하는 리스크 요약
type RiskDefaults struct {
	MeanReturn   float64 `yaml:"mean_return" json:"mean_return"`
	MedianReturn float64 `yaml:"median_return" json:"median_return"`
	Volatility   float64 `yaml:"volatility" json:"volatility"`
	SharpeRatio  float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	MaxDrawdown  float64 `yaml:"max_drawdown" json:"max_drawdown"`
	BestReturn   float64 `yaml:"best_return" json:"best_return"`
	WorstReturn  float64 `yaml:"worst_return" json:"worst_return"`
	VaR95        float64 `yaml:"var95" json:"var95"`
	CVaR95       float64 `yaml:"cvar95" json:"cvar95"`
	PassRate     float64 `yaml:"pass_rate" json:"pass_rate"`
}

// Stats converts the defaults into aggregate stats
func (d RiskDefaults) Stats() contracts.AggregateStats {
	return contracts.AggregateStats{
		MeanReturn:   d.MeanReturn,
		MedianReturn: d.MedianReturn,
		Volatility:   d.Volatility,
		SharpeRatio:  d.SharpeRatio,
		MaxDrawdown:  d.MaxDrawdown,
		BestReturn:   d.BestReturn,
		WorstReturn:  d.WorstReturn,
		VaR95:        d.VaR95,
		CVaR95:       d.CVaR95,
		PassRate:     d.PassRate,
	}
}

// Benchmarks 팩터 비교 기준
type Benchmarks struct {
	EquityBeta    float64 `yaml:"equity_beta" json:"equity_beta"`
	DurationYears float64 `yaml:"duration_years" json:"duration_years"`
	CommodityBeta float64 `yaml:"commodity_beta" json:"commodity_beta"`
}

// SyntheticSeries 시나리오가 없을 때 추정기가 쓰는 합성 수익률 설정
type SyntheticSeries struct {
	Days int   `yaml:"days" json:"days"`
	Seed int64 `yaml:"seed" json:"seed"`
}

// =============================================================================
// Lookups
// =============================================================================

// Episode returns the shock table for an episode id.
// Unmapped ids resolve to the default episode and report synthetic=true.
func (t *Tables) Episode(id string) (ep Episode, synthetic bool) {
	if e, ok := t.Episodes[id]; ok {
		return e, false
	}
	return t.Episodes[t.DefaultEpisode], true
}

// Profile returns the profile of a symbol.
// Unknown symbols use the class default (Equity if the class is unknown too).
// ADV 미지정 시 default_adv 사용.
func (t *Tables) Profile(symbol string, class contracts.AssetClass) (p Profile, known bool) {
	if prof, ok := t.Assets[symbol]; ok {
		p, known = prof, true
		if class != "" {
			p.Class = class
		}
	} else {
		if class == "" {
			class = contracts.ClassEquity
		}
		p = t.ClassDefaults[class]
		p.Class = class
	}
	if p.ADV <= 0 {
		p.ADV = t.DefaultADV
	}
	return p, known
}

// ClassOf resolves the asset class of a symbol (given class wins)
func (t *Tables) ClassOf(symbol string, given contracts.AssetClass) contracts.AssetClass {
	p, _ := t.Profile(symbol, given)
	return p.Class
}

// Resolve fills missing classes from the profiles
func (t *Tables) Resolve(assets []contracts.Asset) []contracts.Asset {
	out := make([]contracts.Asset, len(assets))
	for i, a := range assets {
		out[i] = contracts.Asset{Symbol: a.Symbol, Class: t.ClassOf(a.Symbol, a.Class)}
	}
	return out
}

// AssetsFor builds an asset list for symbols, classes resolved from the profiles
func (t *Tables) AssetsFor(symbols []string) []contracts.Asset {
	out := make([]contracts.Asset, len(symbols))
	for i, s := range symbols {
		out[i] = contracts.Asset{Symbol: s, Class: t.ClassOf(s, "")}
	}
	return out
}
