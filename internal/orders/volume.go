package orders

import (
	"strings"

	"github.com/shopspring/decimal"
)

var mbPerGB = decimal.NewFromInt(1024)

// ParseVolumeLabel converts a bundle volume label into GB for the usage
// counters. "5GB" parses as-is, "512MB" divides by 1024, anything
// unparseable contributes zero. Never fails: counters are best-effort
// bookkeeping and must not block order creation.
func ParseVolumeLabel(label string) decimal.Decimal {
	cleaned := strings.ToUpper(strings.TrimSpace(label))
	cleaned = strings.ReplaceAll(cleaned, " ", "")

	switch {
	case strings.HasSuffix(cleaned, "GB"):
		value, err := decimal.NewFromString(strings.TrimSuffix(cleaned, "GB"))
		if err != nil {
			return decimal.Zero
		}
		return value
	case strings.HasSuffix(cleaned, "MB"):
		value, err := decimal.NewFromString(strings.TrimSuffix(cleaned, "MB"))
		if err != nil {
			return decimal.Zero
		}
		return value.Div(mbPerGB)
	default:
		return decimal.Zero
	}
}
