package funding

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ClampProgress returns allocated/total as a percentage truncated to two
// decimals, bounded to [0, 100]. Truncation keeps 100 reserved for rounds
// with no shares left. A round without shares reports 0.
func ClampProgress(allocated, total int64) decimal.Decimal {
	if total <= 0 || allocated <= 0 {
		return decimal.Zero
	}
	pct, _ := decimal.NewFromInt(allocated).Mul(hundred).QuoRem(decimal.NewFromInt(total), 2)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// IsFullyFunded reports progress at or above 100.
func IsFullyFunded(progress decimal.Decimal) bool {
	return progress.GreaterThanOrEqual(hundred)
}

// DaysRemaining counts whole or partial days left in the funding window.
// A round that has not opened yet reports the full window.
func DaysRemaining(openedAt *time.Time, windowDays int, now time.Time) int {
	if windowDays <= 0 {
		return 0
	}
	if openedAt == nil {
		return windowDays
	}
	left := openedAt.Add(time.Duration(windowDays) * 24 * time.Hour).Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}
