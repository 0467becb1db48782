// Package money provides the fixed-precision amounts used by the ledger.
//
// Money is held at cent resolution and Quantity at 1/10000 of a share. Both
// wrap shopspring/decimal so no ledger arithmetic ever passes through float64.
package money

import (
	"fmt"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const (
	// MoneyPlaces is the number of decimal digits kept on a Money value.
	MoneyPlaces = 2
	// QuantityPlaces is the number of decimal digits kept on a Quantity.
	QuantityPlaces = 4
)

var hundred = decimal.NewFromInt(100)

// Money is a currency amount rounded to cents. The zero value is 0.00.
type Money struct {
	value decimal.Decimal
}

// New rounds d half away from zero to cents.
func New(d decimal.Decimal) Money {
	return Money{value: d.Round(MoneyPlaces)}
}

// FromCents builds a Money from an integer count of minor units.
func FromCents(cents int64) Money {
	return Money{value: decimal.New(cents, -MoneyPlaces)}
}

// Parse reads a decimal string such as "1780.00".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return New(d), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero is 0.00.
var Zero = Money{}

func (m Money) Decimal() decimal.Decimal { return m.value }
func (m Money) Cents() int64 { return m.value.Shift(MoneyPlaces).IntPart() }
func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value)} }
func (m Money) Neg() Money { return Money{value: m.value.Neg()} }
func (m Money) Abs() Money { return Money{value: m.value.Abs()} }
func (m Money) Cmp(n Money) int { return m.value.Cmp(n.value) }
func (m Money) Equal(n Money) bool { return m.value.Equal(n.value) }
func (m Money) LessThan(n Money) bool { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool { return m.value.GreaterThan(n.value) }
func (m Money) LessThanOrEqual(n Money) bool { return m.value.LessThanOrEqual(n.value) }
func (m Money) IsZero() bool { return m.value.IsZero() }
func (m Money) IsPositive() bool { return m.value.IsPositive() }
func (m Money) IsNegative() bool { return m.value.IsNegative() }

// String returns the amount with exactly two decimals, e.g. "8220.00".
func (m Money) String() string { return m.value.StringFixed(MoneyPlaces) }

// Display formats the amount with the currency symbol and grouping of code,
// e.g. "$8,220.00" for USD.
func (m Money) Display(code string) string {
	return gomoney.New(m.Cents(), code).Display()
}

// Mul returns m × q rounded to cents.
func (m Money) Mul(q Quantity) Money {
	return New(m.value.Mul(q.value))
}

// Percent returns pct% of m rounded to cents.
func (m Money) Percent(pct decimal.Decimal) Money {
	return New(m.value.Mul(pct).Div(hundred))
}

// SharesFor returns how many shares m buys at price, rounded down to the
// quantity resolution so the shares never cost more than m.
// A non-positive price yields zero shares.
func (m Money) SharesFor(price Money) Quantity {
	if !price.IsPositive() {
		return Quantity{}
	}
	return Floor(m.value.Div(price.value))
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = New(d)
	return nil
}

// IsCurrency reports whether code is an ISO 4217 currency known to go-money.
func IsCurrency(code string) bool {
	return gomoney.GetCurrency(code) != nil
}
