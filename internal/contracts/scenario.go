package contracts

import (
	"fmt"
	"math"
)

// BasePrice 모든 경로의 시작 가격 (자산/시나리오 간 수익률 비교 가능)
const BasePrice = 100.0

// TradingDaysPerYear 연율화 기준 거래일 수
const TradingDaysPerYear = 252

// Request size guards. 요청 하나당 작업량 = paths × horizon × assets
const (
	MaxHorizonDays = 2520
	MaxPaths       = 100000
)

// ScenarioKind 시나리오 생성 방식
type ScenarioKind string

const (
	KindHistorical ScenarioKind = "historical"
	KindMacroShock ScenarioKind = "macroShock"
	KindMonteCarlo ScenarioKind = "monteCarlo"
)

// Regime Monte Carlo 변동성 레짐
type Regime struct {
	Name          string  `json:"name" yaml:"name"`
	VolMultiplier float64 `json:"volMultiplier" yaml:"volMultiplier"`
	Probability   float64 `json:"probability" yaml:"probability"`
}

// MacroShock 거시 충격 정의
// EquityShocks keys are asset tags (region or sector), values are total returns over the horizon.
type MacroShock struct {
	ID              string             `json:"id" yaml:"id"`
	Name            string             `json:"name" yaml:"name"`
	RateShiftBps    float64            `json:"rateShiftBps" yaml:"rateShiftBps"`
	CurrencyPct     float64            `json:"currencyPct" yaml:"currencyPct"` // USD 변동 (0.05 = USD +5%)
	EquityShocks    map[string]float64 `json:"equityShocks,omitempty" yaml:"equityShocks,omitempty"`
	CreditSpreadBps float64            `json:"creditSpreadBps" yaml:"creditSpreadBps"`
}

// ScenarioConfig 시나리오 생성 설정
// ⭐ SSOT: 재현성을 위해 Seed 포함 모든 입력을 명시
type ScenarioConfig struct {
	HorizonDays int            `json:"horizonDays" yaml:"horizonDays"`
	Paths       int            `json:"paths" yaml:"paths"`
	Seed        int64          `json:"seed" yaml:"seed"`
	Kinds       []ScenarioKind `json:"kinds" yaml:"kinds"`
	Episodes    []string       `json:"episodes,omitempty" yaml:"episodes,omitempty"`
	MacroShocks []MacroShock   `json:"macroShocks,omitempty" yaml:"macroShocks,omitempty"`
	Regimes     []Regime       `json:"regimes,omitempty" yaml:"regimes,omitempty"`
}

// Enabled reports whether a generator kind is switched on
func (c ScenarioConfig) Enabled(kind ScenarioKind) bool {
	for _, k := range c.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Validate rejects malformed configurations (fail-closed)
func (c ScenarioConfig) Validate() error {
	if c.HorizonDays <= 0 || c.HorizonDays > MaxHorizonDays {
		return fmt.Errorf("%w: horizonDays must be in [1, %d], got %d", ErrInvalidConfig, MaxHorizonDays, c.HorizonDays)
	}
	if len(c.Kinds) == 0 {
		return fmt.Errorf("%w: at least one scenario kind must be enabled", ErrInvalidConfig)
	}

	for _, k := range c.Kinds {
		switch k {
		case KindHistorical:
			if len(c.Episodes) == 0 {
				return fmt.Errorf("%w: historical kind requires episodes", ErrInvalidConfig)
			}
		case KindMacroShock:
			if len(c.MacroShocks) == 0 {
				return fmt.Errorf("%w: macroShock kind requires shock definitions", ErrInvalidConfig)
			}
			for i, s := range c.MacroShocks {
				if s.ID == "" {
					return fmt.Errorf("%w: macroShocks[%d] has no id", ErrInvalidConfig, i)
				}
			}
		case KindMonteCarlo:
			if c.Paths <= 0 || c.Paths > MaxPaths {
				return fmt.Errorf("%w: paths must be in [1, %d], got %d", ErrInvalidConfig, MaxPaths, c.Paths)
			}
			// 비어 있으면 참조 데이터의 기본 레짐 사용
			if len(c.Regimes) > 0 {
				if err := validateRegimes(c.Regimes); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%w: unknown scenario kind %q", ErrInvalidConfig, k)
		}
	}

	return nil
}

func validateRegimes(regimes []Regime) error {
	var total float64
	for _, r := range regimes {
		if r.VolMultiplier <= 0 || math.IsNaN(r.VolMultiplier) {
			return fmt.Errorf("%w: regime %q volMultiplier must be > 0", ErrInvalidConfig, r.Name)
		}
		if r.Probability < 0 || r.Probability > 1 || math.IsNaN(r.Probability) {
			return fmt.Errorf("%w: regime %q probability must be in [0, 1]", ErrInvalidConfig, r.Name)
		}
		total += r.Probability
	}

	if math.Abs(total-1.0) > 1e-3 {
		return fmt.Errorf("%w: regime probabilities must sum to 1, got %.6f", ErrInvalidConfig, total)
	}
	return nil
}

// Scenario 자산별 가격 경로 묶음
type Scenario struct {
	ID        string               `json:"id" yaml:"id"`
	Name      string               `json:"name" yaml:"name"`
	Type      ScenarioKind         `json:"type" yaml:"type"`
	Paths     map[string][]float64 `json:"paths" yaml:"paths"`
	Synthetic bool                 `json:"synthetic,omitempty" yaml:"synthetic,omitempty"`
}

// HorizonDays returns the shortest path length minus one (0 if no paths)
func (s *Scenario) HorizonDays() int {
	minLen := -1
	for _, p := range s.Paths {
		if minLen == -1 || len(p) < minLen {
			minLen = len(p)
		}
	}
	if minLen <= 0 {
		return 0
	}
	return minLen - 1
}

// Returns converts the price path of a symbol into simple daily returns
func (s *Scenario) Returns(symbol string) []float64 {
	prices, ok := s.Paths[symbol]
	if !ok || len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out[i-1] = prices[i]/prices[i-1] - 1
	}
	return out
}

// CheckPaths verifies that every symbol has a usable path of at least minLen prices.
// 가격은 양수이고 유한해야 한다.
func (s *Scenario) CheckPaths(symbols []string, minLen int) error {
	for _, sym := range symbols {
		prices, ok := s.Paths[sym]
		if !ok {
			return fmt.Errorf("%w: scenario %s has no path for %s", ErrMalformedScenario, s.ID, sym)
		}
		if len(prices) < minLen || len(prices) < 2 {
			return fmt.Errorf("%w: scenario %s path for %s has %d prices, need %d",
				ErrMalformedScenario, s.ID, sym, len(prices), max(minLen, 2))
		}
		for _, p := range prices {
			if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
				return fmt.Errorf("%w: scenario %s path for %s has invalid price %v", ErrMalformedScenario, s.ID, sym, p)
			}
		}
	}
	return nil
}
