// README: Common money value object used across modules.
package types

import "fmt"

// Money is an amount in minor units (cents). Two-decimal semantics are
// guaranteed by construction; no floating point ever touches a balance.
type Money struct {
	Amount   int64
	Currency string
}

func (m Money) IsPositive() bool { return m.Amount > 0 }

// Float64 returns the amount in major units for presentation only.
func (m Money) Float64() float64 { return float64(m.Amount) / 100 }

func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Float64(), m.Currency)
}
