package reconciliation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/marchbank/estate-reconciler/internal/domain"
)

// Tolerance thresholds for the status classifier. A variance inside either
// tolerance is considered settled; beyond the flag threshold it needs a
// human.
var (
	absoluteTolerance = decimal.RequireFromString("1.00")
	relativeTolerance = decimal.RequireFromString("0.005")
	flagThreshold     = decimal.RequireFromString("0.05")
)

// classification is the classifier's full output for one revenue record.
type classification struct {
	Status          domain.ReconciliationStatus
	Variance        decimal.Decimal
	VariancePercent decimal.Decimal
	Note            string
}

// classify derives a reconciliation status from a bank amount and a source
// amount. Branch order is load-bearing: absence of a bank amount beats every
// tolerance, and the tolerance check beats the flag threshold, so a record
// is only flagged when its variance exceeds both.
func classify(bankAmount, sourceAmount decimal.Decimal) classification {
	variance := bankAmount.Sub(sourceAmount).Abs()

	variancePercent := decimal.Zero
	if !sourceAmount.IsZero() {
		variancePercent = variance.Div(sourceAmount)
	}

	c := classification{Variance: variance, VariancePercent: variancePercent}

	switch {
	case bankAmount.IsZero():
		c.Status = domain.StatusUnmatched
		c.Note = fmt.Sprintf("no bank transaction found for %s expected", sourceAmount.StringFixed(2))
	case variance.LessThanOrEqual(absoluteTolerance) || variancePercent.LessThanOrEqual(relativeTolerance):
		c.Status = domain.StatusMatched
		c.Note = fmt.Sprintf("matched %s against %s (variance %s)",
			bankAmount.StringFixed(2), sourceAmount.StringFixed(2), variance.StringFixed(2))
	case variancePercent.GreaterThan(flagThreshold):
		c.Status = domain.StatusFlagged
		c.Note = fmt.Sprintf("material discrepancy: bank %s vs source %s (%s%% variance)",
			bankAmount.StringFixed(2), sourceAmount.StringFixed(2),
			variancePercent.Mul(decimal.NewFromInt(100)).StringFixed(1))
	default:
		c.Status = domain.StatusMatched
		c.Note = fmt.Sprintf("matched with residual variance %s (%s%%)",
			variance.StringFixed(2),
			variancePercent.Mul(decimal.NewFromInt(100)).StringFixed(1))
	}

	return c
}
