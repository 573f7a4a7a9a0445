package contracts

import "errors"

// Sentinel errors shared by every stage.
// 호출자는 errors.Is로 분기한다 (API 상태코드 매핑 등).
var (
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrUnknownObjective      = errors.New("unknown optimization objective")
	ErrInfeasibleConstraints = errors.New("infeasible constraints")
	ErrInsufficientData      = errors.New("insufficient data")
	ErrMalformedScenario     = errors.New("malformed scenario")
)
