package money

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
)

// CentPlaces is the precision every stored USD amount carries.
const CentPlaces = 2

// Breakdown is the derived money split of one gross investment.
type Breakdown struct {
	Gross      decimal.Decimal
	Commission decimal.Decimal
	Net        decimal.Decimal
	Shares     int64
	// Remainder is the part of Gross that did not buy a whole share.
	Remainder decimal.Decimal
}

// AmountViolation describes one rejected money input.
type AmountViolation struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// Commission rounds gross*rate to cents, half away from zero.
func Commission(gross, rate decimal.Decimal) decimal.Decimal {
	return gross.Mul(rate).Round(CentPlaces)
}

// WholeShares returns floor(gross/price) and what is left over.
func WholeShares(gross, price decimal.Decimal) (int64, decimal.Decimal) {
	quotient, remainder := gross.QuoRem(price, 0)
	return quotient.IntPart(), remainder
}

// Split validates gross and price and derives commission, net, and shares.
// Net plus Commission always equals Gross exactly.
func Split(gross, price, rate decimal.Decimal) (Breakdown, error) {
	if err := ValidateAmounts(gross, price); err != nil {
		return Breakdown{}, err
	}
	commission := Commission(gross, rate)
	shares, remainder := WholeShares(gross, price)
	if shares == 0 {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "amount is below the price of one share").WithDetails(map[string]any{
			"violations": []AmountViolation{{Field: "amount", Value: gross.StringFixed(CentPlaces), Reason: "below share price " + price.StringFixed(CentPlaces)}},
		})
	}
	return Breakdown{
		Gross:      gross,
		Commission: commission,
		Net:        gross.Sub(commission),
		Shares:     shares,
		Remainder:  remainder,
	}, nil
}

// ValidateAmounts checks that both values are positive and cent denominated.
func ValidateAmounts(gross, price decimal.Decimal) error {
	var violations []AmountViolation
	check := func(field string, value decimal.Decimal) {
		switch {
		case !value.IsPositive():
			violations = append(violations, AmountViolation{Field: field, Value: value.String(), Reason: "must be positive"})
		case !IsCents(value):
			violations = append(violations, AmountViolation{Field: field, Value: value.String(), Reason: "must have at most two decimal places"})
		}
	}
	check("amount", gross)
	check("share_price", price)

	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid money amounts").WithDetails(map[string]any{
		"violations": violations,
	})
}

// IsCents reports whether value has no sub-cent digits.
func IsCents(value decimal.Decimal) bool {
	return value.Equal(value.Round(CentPlaces))
}
