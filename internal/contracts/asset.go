package contracts

import "fmt"

// AssetClass 자산군 (비용 모델 / 충격 민감도 조회 키)
type AssetClass string

const (
	ClassEquity      AssetClass = "Equity"
	ClassFixedIncome AssetClass = "FixedIncome"
	ClassCommodities AssetClass = "Commodities"
	ClassCash        AssetClass = "Cash"
)

// Valid reports whether the class is one of the known asset classes
func (c AssetClass) Valid() bool {
	switch c {
	case ClassEquity, ClassFixedIncome, ClassCommodities, ClassCash:
		return true
	}
	return false
}

// Asset is a symbol tagged with its asset class
type Asset struct {
	Symbol string     `json:"symbol" yaml:"symbol"`
	Class  AssetClass `json:"class" yaml:"class"`
}

// Symbols returns the symbols of the assets in input order
func Symbols(assets []Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Symbol
	}
	return out
}

// ValidateAssets checks for empty or duplicated symbols and unknown classes.
// An empty class is allowed; the reference tables resolve it later.
func ValidateAssets(assets []Asset) error {
	if len(assets) == 0 {
		return fmt.Errorf("%w: asset list is empty", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(assets))
	for _, a := range assets {
		if a.Symbol == "" {
			return fmt.Errorf("%w: asset symbol is empty", ErrInvalidConfig)
		}
		if seen[a.Symbol] {
			return fmt.Errorf("%w: duplicate asset %s", ErrInvalidConfig, a.Symbol)
		}
		if a.Class != "" && !a.Class.Valid() {
			return fmt.Errorf("%w: asset %s has unknown class %q", ErrInvalidConfig, a.Symbol, a.Class)
		}
		seen[a.Symbol] = true
	}
	return nil
}
