package domain

import "fmt"

// MilliOre represents monetary values in thousandths of a Danish øre.
// Using an integer unit avoids floating-point drift when summing per-event
// costs over large evaluation runs while staying precise enough for
// fractional per-token rates.
type MilliOre int64

const (
	// MilliOrePerOre is the number of milli-øre in one øre.
	MilliOrePerOre = 1_000

	// MilliOrePerKrone is the number of milli-øre in one krone.
	MilliOrePerKrone = 100_000
)

// Kroner converts the amount to kroner as a float, for display and API payloads.
func (m MilliOre) Kroner() float64 { return float64(m) / MilliOrePerKrone }

// IsZero returns true if the amount is zero.
func (m MilliOre) IsZero() bool { return m == 0 }

// Add returns the sum of two amounts.
func (m MilliOre) Add(x MilliOre) MilliOre { return m + x }

// String formats the amount in kroner (e.g. 150000 → "kr 1.50000").
func (m MilliOre) String() string { return fmt.Sprintf("kr %.5f", m.Kroner()) }
