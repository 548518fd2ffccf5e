package services

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/vsinha/forecast-recon/pkg/domain/entities"
)

var (
	rateScale = decimal.NewFromInt(1000)
	one       = decimal.NewFromInt(1)
	two       = decimal.NewFromInt(2)
)

// ErrQuantityOverflow is returned when a quantity sum leaves the int64 range
var ErrQuantityOverflow = errors.New("quantity sum overflows int64")

// addQuantity adds two non-negative quantities, reporting false on overflow
func addQuantity(a, b entities.Quantity) (entities.Quantity, bool) {
	if b > math.MaxInt64-a {
		return a, false
	}
	return a + b, true
}

// AchievementRate returns actual/forecast*100 rounded half away from zero to
// one decimal, or 0 when forecast is 0. The division is exact: the quotient is
// computed in tenths of a percent with an integer remainder.
func AchievementRate(actual, forecast entities.Quantity) float64 {
	if forecast <= 0 {
		return 0
	}
	num := decimal.NewFromInt(int64(actual)).Mul(rateScale)
	den := decimal.NewFromInt(int64(forecast))
	q, r := num.QuoRem(den, 0)
	if r.Abs().Mul(two).GreaterThanOrEqual(den) {
		if num.Sign() < 0 {
			q = q.Sub(one)
		} else {
			q = q.Add(one)
		}
	}
	return q.Shift(-1).InexactFloat64()
}

// Reconcile derives the metrics of one joined row
func Reconcile(row JoinedRow) entities.ReconciledRecord {
	diff := row.ActualQty - row.Forecast.ForecastQty
	return entities.ReconciledRecord{
		ForecastRecord:  row.Forecast,
		ActualQty:       row.ActualQty,
		Matched:         row.Matched,
		Difference:      diff,
		AbsoluteError:   diff.Abs(),
		AchievementRate: AchievementRate(row.ActualQty, row.Forecast.ForecastQty),
	}
}

// ReconcileAll derives metrics for every joined row, preserving order
func ReconcileAll(rows []JoinedRow) []entities.ReconciledRecord {
	records := make([]entities.ReconciledRecord, len(rows))
	for i, row := range rows {
		records[i] = Reconcile(row)
	}
	return records
}
