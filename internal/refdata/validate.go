package refdata

import (
	"fmt"
	"math"

	"github.com/wonny/aegis-allocator/internal/contracts"
)

// ValidationError 검증 실패 (로드 거부)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets callers match the shared config sentinel
func (e ValidationError) Unwrap() error {
	return contracts.ErrInvalidConfig
}

// Validate checks all required constraints
func Validate(t *Tables) error {
	if t.Notional <= 0 {
		return ValidationError{"notional", "must be > 0"}
	}
	if t.DefaultADV <= 0 {
		return ValidationError{"default_adv", "must be > 0"}
	}

	// === Episodes ===
	if len(t.Episodes) == 0 {
		return ValidationError{"episodes", "required"}
	}
	if _, ok := t.Episodes[t.DefaultEpisode]; !ok {
		return ValidationError{"default_episode", fmt.Sprintf("%q is not defined in episodes", t.DefaultEpisode)}
	}
	for id, ep := range t.Episodes {
		if ep.VolMultiplier <= 0 {
			return ValidationError{"episodes." + id + ".vol_multiplier", "must be > 0"}
		}
		for class, v := range ep.ClassShocks {
			if !class.Valid() {
				return ValidationError{"episodes." + id + ".class_shocks", fmt.Sprintf("unknown class %q", class)}
			}
			if v <= -1 || math.IsNaN(v) {
				return ValidationError{"episodes." + id + ".class_shocks." + string(class), "must be > -1"}
			}
		}
		if ep.EquityShock <= -1 || ep.BondShock <= -1 {
			return ValidationError{"episodes." + id, "shocks must be > -1"}
		}
	}

	// === Profiles ===
	for sym, p := range t.Assets {
		if err := validateProfile("assets."+sym, p); err != nil {
			return err
		}
	}
	for _, class := range []contracts.AssetClass{
		contracts.ClassEquity, contracts.ClassFixedIncome, contracts.ClassCommodities, contracts.ClassCash,
	} {
		p, ok := t.ClassDefaults[class]
		if !ok {
			return ValidationError{"class_defaults." + string(class), "required"}
		}
		if err := validateProfile("class_defaults."+string(class), p); err != nil {
			return err
		}
	}

	// === Sensitivities ===
	if len(t.Sensitivities) == 0 {
		return ValidationError{"sensitivities", "required"}
	}
	seen := make(map[string]bool, len(t.Sensitivities))
	for i, s := range t.Sensitivities {
		field := fmt.Sprintf("sensitivities[%d]", i)
		if s.ID == "" || seen[s.ID] {
			return ValidationError{field + ".id", "required and unique"}
		}
		seen[s.ID] = true
		switch s.Factor {
		case FactorDuration, FactorInternational, FactorEnergy, FactorEquity:
		default:
			return ValidationError{field + ".factor", fmt.Sprintf("unknown factor %q", s.Factor)}
		}
		if s.VolScale < -1 || s.DrawdownScale < -1 {
			return ValidationError{field, "scales must be >= -1"}
		}
	}

	// === Risk defaults / synthetic ===
	if t.RiskDefaults.Volatility < 0 || t.RiskDefaults.MaxDrawdown < 0 {
		return ValidationError{"risk_defaults", "volatility and max_drawdown must be >= 0"}
	}
	if t.RiskDefaults.PassRate < 0 || t.RiskDefaults.PassRate > 1 {
		return ValidationError{"risk_defaults.pass_rate", "must be in [0, 1]"}
	}
	if t.Synthetic.Days < 2 {
		return ValidationError{"synthetic.days", "must be >= 2"}
	}

	if len(t.Regimes) > 0 {
		cfg := contracts.ScenarioConfig{
			HorizonDays: 1, Paths: 1,
			Kinds:   []contracts.ScenarioKind{contracts.KindMonteCarlo},
			Regimes: t.Regimes,
		}
		if err := cfg.Validate(); err != nil {
			return ValidationError{"regimes", err.Error()}
		}
	}

	return nil
}

func validateProfile(field string, p Profile) error {
	if !p.Class.Valid() {
		return ValidationError{field + ".class", fmt.Sprintf("unknown class %q", p.Class)}
	}
	if p.Volatility < 0 || math.IsNaN(p.Volatility) {
		return ValidationError{field + ".volatility", "must be >= 0"}
	}
	if p.ADV < 0 {
		return ValidationError{field + ".adv", "must be >= 0"}
	}
	if p.Duration < 0 {
		return ValidationError{field + ".duration", "must be >= 0"}
	}
	return nil
}
