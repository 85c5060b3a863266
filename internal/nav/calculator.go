// internal/nav/calculator.go
package nav

import (
	"errors"

	"github.com/rovshanmuradov/mnav/internal/types"
)

var (
	// ErrZeroShares is returned when the share count is zero, fallback included
	ErrZeroShares = errors.New("shares outstanding is zero: NAV per share is undefined")

	// ErrZeroNAV is returned when NAV per share is zero and the ratio is undefined
	ErrZeroNAV = errors.New("NAV per share is zero: mNAV ratio is undefined")
)

// Report is the valuation derived from one snapshot and holdings figure
type Report struct {
	TreasuryValue float64 `json:"treasury_value"`
	NavPerShare   float64 `json:"nav_per_share"`
	MNAVRatio     float64 `json:"mnav_ratio"`
	PremiumPct    float64 `json:"premium_pct"`
	Signal        Signal  `json:"signal"`
}

// Compute derives treasury value, NAV per share, the mNAV ratio and the
// premium. Inputs are not clamped; only the two divisions are guarded.
// Signal is classified with the default thresholds; use ComputeWith to override.
func Compute(snapshot types.MarketSnapshot, holdings types.Field) (Report, error) {
	return ComputeWith(snapshot, holdings, DefaultThresholds())
}

// ComputeWith is Compute with explicit signal thresholds
func ComputeWith(snapshot types.MarketSnapshot, holdings types.Field, th Thresholds) (Report, error) {
	shares := snapshot.SharesOutstanding.Value
	if shares == 0 {
		return Report{}, ErrZeroShares
	}

	treasury := holdings.Value * snapshot.CryptoPrice.Value
	navPerShare := treasury / shares
	if navPerShare == 0 {
		return Report{TreasuryValue: treasury}, ErrZeroNAV
	}

	ratio := snapshot.StockPrice.Value / navPerShare
	return Report{
		TreasuryValue: treasury,
		NavPerShare:   navPerShare,
		MNAVRatio:     ratio,
		PremiumPct:    (ratio - 1) * 100,
		Signal:        Classify(ratio, th),
	}, nil
}
