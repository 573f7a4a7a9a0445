package contracts

// CostModel 거래 비용 모델 (bps 단위)
type CostModel struct {
	CommissionBps          float64                `json:"commissionBps" yaml:"commissionBps"`
	BidAskBps              map[AssetClass]float64 `json:"bidAskBps" yaml:"bidAskBps"`
	SlippageBpsPerTurnover float64                `json:"slippageBpsPerTurnover" yaml:"slippageBpsPerTurnover"`
}

// DefaultCostModel returns the cost model used when the caller supplies none
func DefaultCostModel() CostModel {
	return CostModel{
		CommissionBps: 1.0,
		BidAskBps: map[AssetClass]float64{
			ClassEquity:      2.0,
			ClassFixedIncome: 3.0,
			ClassCommodities: 5.0,
			ClassCash:        0.0,
		},
		SlippageBpsPerTurnover: 10.0,
	}
}

// IsZero reports whether no cost parameter was set
func (m CostModel) IsZero() bool {
	return m.CommissionBps == 0 && len(m.BidAskBps) == 0 && m.SlippageBpsPerTurnover == 0
}

// TradeCost returns the cost of trading a fraction of portfolio value in one asset,
// as a fraction of portfolio value.
// ⭐ SSOT: 시뮬레이터와 어드바이스가 같은 비용 함수를 사용
//
//	cost = traded × (commission + bidAsk[class] + slippage × traded) / 10000
func (m CostModel) TradeCost(class AssetClass, tradedFraction float64) float64 {
	if tradedFraction <= 0 {
		return 0
	}
	bps := m.CommissionBps + m.BidAskBps[class] + m.SlippageBpsPerTurnover*tradedFraction
	return tradedFraction * bps / 10000
}
