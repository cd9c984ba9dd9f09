// Package marketcalc holds the pure arithmetic behind collateral, premium
// and realized P&L. Everything is decimal; nothing in here touches the DB.
package marketcalc

import "github.com/shopspring/decimal"

// SharesPerContract is the standard equity option multiplier.
var SharesPerContract = decimal.NewFromInt(100)

var hundred = decimal.NewFromInt(100)

// Collateral is the cash locked by a cash-secured put:
// |strike| * 100 * |contracts|. Covered calls and plain long options hold
// no cash collateral in this model.
func Collateral(strike decimal.Decimal, contracts int) decimal.Decimal {
	return strike.Abs().Mul(SharesPerContract).Mul(decimal.NewFromInt(int64(contracts)).Abs())
}

// PremiumNotional is |contractPrice| * 100 * |contracts|.
func PremiumNotional(contractPrice decimal.Decimal, contracts int) decimal.Decimal {
	return contractPrice.Abs().Mul(SharesPerContract).Mul(decimal.NewFromInt(int64(contracts)).Abs())
}

// RealizedLeg returns the gross realized amount and the percent P&L for
// closing `contracts` contracts of a leg opened at openPrice and closed at
// closePrice. Short legs gain when price decays (open - close); long legs
// gain the other way. percentPL is 0 when openPrice is 0.
func RealizedLeg(openPrice, closePrice decimal.Decimal, contracts int, short bool) (gross, percentPL decimal.Decimal) {
	qty := decimal.NewFromInt(int64(contracts))
	if short {
		gross = openPrice.Sub(closePrice).Mul(SharesPerContract).Mul(qty)
	} else {
		gross = closePrice.Sub(openPrice).Mul(SharesPerContract).Mul(qty)
	}
	if openPrice.IsZero() {
		return gross, decimal.Zero
	}
	percentPL = closePrice.Sub(openPrice).Div(openPrice).Mul(hundred)
	if short {
		percentPL = percentPL.Neg()
	}
	return gross, percentPL
}

// NetOfFees subtracts per-contract and flat fees from a gross amount.
func NetOfFees(gross, feesPerContract decimal.Decimal, contracts int, flatFees decimal.Decimal) decimal.Decimal {
	total := feesPerContract.Mul(decimal.NewFromInt(int64(contracts))).Add(flatFees)
	return gross.Sub(total)
}

// FeesTotal is feesPerContract*contracts + flatFees.
func FeesTotal(feesPerContract decimal.Decimal, contracts int, flatFees decimal.Decimal) decimal.Decimal {
	return feesPerContract.Mul(decimal.NewFromInt(int64(contracts))).Add(flatFees)
}

// NormalizeSign forces the stored realized amount to agree in sign with the
// percent P&L: non-negative percent keeps |amount|, negative percent keeps
// -|amount|. This overrides whatever sign fee subtraction produced.
func NormalizeSign(amount, percentPL decimal.Decimal) decimal.Decimal {
	if percentPL.IsNegative() {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// Source tags a realized figure as authoritative or derived.
type Source string

const (
	// SourceRecorded: the stored premiumCaptured of a closed row.
	SourceRecorded Source = "recorded"
	// SourceEstimated: reconstructed from contract and closing prices
	// because the stored figure is absent.
	SourceEstimated Source = "estimated"
)

// RealizedAmount is a realized dollar figure plus where it came from, so
// read-side callers can tell authoritative numbers from derived ones.
type RealizedAmount struct {
	Amount decimal.Decimal
	Source Source
}
