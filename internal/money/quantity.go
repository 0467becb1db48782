package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity is a share count with four decimal places. The zero value is 0.
type Quantity struct {
	value decimal.Decimal
}

// Q rounds d to the quantity resolution.
func Q(d decimal.Decimal) Quantity {
	return Quantity{value: d.Round(QuantityPlaces)}
}

// QInt is a whole number of shares.
func QInt(n int64) Quantity {
	return Quantity{value: decimal.NewFromInt(n)}
}

// Floor truncates d toward negative infinity at the quantity resolution.
func Floor(d decimal.Decimal) Quantity {
	return Quantity{value: d.RoundFloor(QuantityPlaces)}
}

// ParseQuantity reads a decimal string such as "10.5".
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("money: parse quantity %q: %w", s, err)
	}
	return Q(d), nil
}

// MustQuantity is ParseQuantity for constants and tests.
func MustQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Decimal() decimal.Decimal { return q.value }
func (q Quantity) Add(p Quantity) Quantity { return Quantity{value: q.value.Add(p.value)} }
func (q Quantity) Sub(p Quantity) Quantity { return Quantity{value: q.value.Sub(p.value)} }
func (q Quantity) Cmp(p Quantity) int { return q.value.Cmp(p.value) }
func (q Quantity) Equal(p Quantity) bool { return q.value.Equal(p.value) }
func (q Quantity) LessThan(p Quantity) bool { return q.value.LessThan(p.value) }
func (q Quantity) GreaterThan(p Quantity) bool { return q.value.GreaterThan(p.value) }
func (q Quantity) IsZero() bool { return q.value.IsZero() }
func (q Quantity) IsPositive() bool { return q.value.IsPositive() }
func (q Quantity) IsNegative() bool { return q.value.IsNegative() }

// String returns the count with four decimals, e.g. "10.0000".
func (q Quantity) String() string { return q.value.StringFixed(QuantityPlaces) }

// Ratio returns q / total as an unrounded decimal. A zero total yields zero.
func (q Quantity) Ratio(total Quantity) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return q.value.Div(total.value)
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + q.String() + `"`), nil
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*q = Q(d)
	return nil
}
