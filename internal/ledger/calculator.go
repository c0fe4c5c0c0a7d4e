// Package ledger holds the points arithmetic applied by every settlement.
package ledger

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeAmount  = errors.New("amount must be zero or greater")
	ErrAmountPrecision = errors.New("amount must have no more than 2 decimal places")
	ErrAmountTooLarge  = errors.New("amount must be less than 100000000")
	ErrInvalidRates    = errors.New("reward and redemption rates must be non-negative and redemption points positive")
)

// MaxAmount bounds an amount to what a decimal(10,2) column holds.
var MaxAmount = decimal.New(1, 8)

// Rates is the slice of a business's program that settlement needs.
type Rates struct {
	RewardRate       decimal.Decimal // points per currency unit
	RedemptionPoints uint            // all-or-nothing redemption threshold
	RedemptionRate   decimal.Decimal // discount fraction applied on redemption
}

func (r Rates) Validate() error {
	if r.RewardRate.IsNegative() || r.RedemptionRate.IsNegative() || r.RedemptionPoints == 0 {
		return ErrInvalidRates
	}
	return nil
}

type Result struct {
	PointsEarned   uint
	PointsRedeemed uint
	Discount       decimal.Decimal
	FinalAmount    decimal.Decimal
	NewBalance     uint
}

const cents = 2

// ValidateAmount accepts non-negative amounts with at most two decimal places
// below MaxAmount. Trailing zeros do not count as places.
func ValidateAmount(amount decimal.Decimal) error {
	switch {
	case amount.IsNegative():
		return ErrNegativeAmount
	case !amount.Equal(amount.Truncate(cents)):
		return ErrAmountPrecision
	case amount.GreaterThanOrEqual(MaxAmount):
		return ErrAmountTooLarge
	}
	return nil
}

// Settle computes one visit. Earned points are truncated, never rounded up.
// Redemption happens only when requested and when the balance including this
// visit's points reaches the threshold; it then takes exactly the threshold.
func Settle(amount decimal.Decimal, rates Rates, balance uint, redeem bool) (Result, error) {
	if err := ValidateAmount(amount); err != nil {
		return Result{}, err
	}
	if err := rates.Validate(); err != nil {
		return Result{}, err
	}

	earned := uint(amount.Mul(rates.RewardRate).Floor().IntPart())
	candidate := balance + earned

	res := Result{
		PointsEarned: earned,
		Discount:     decimal.Zero,
		FinalAmount:  amount.Round(cents),
		NewBalance:   candidate,
	}

	if redeem && candidate >= rates.RedemptionPoints {
		res.PointsRedeemed = rates.RedemptionPoints
		res.NewBalance = candidate - rates.RedemptionPoints
		res.Discount = amount.Mul(rates.RedemptionRate).Round(cents)
		final := amount.Sub(res.Discount).Round(cents)
		if final.IsNegative() {
			final = decimal.Zero
		}
		res.FinalAmount = final
	}
	return res, nil
}
