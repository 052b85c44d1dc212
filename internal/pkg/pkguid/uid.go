package pkguid

import "strconv"

// StringID generates unique string identifiers.
type StringID interface {
	// Generate generates a unique identifier as a string.
	Generate() string
}

// NumberID generates unique numeric identifiers.
type NumberID interface {
	// Generate generates a unique identifier as a uint64 number.
	Generate() int64
}

// Decimal adapts a NumberID to StringID by formatting each ID in base 10.
//
// Snowflake IDs stay time-ordered when compared as numbers, which callers use
// to find the newest entries.
type Decimal struct {
	gen NumberID
}

// NewDecimal wraps gen so it can be used wherever a StringID is expected.
func NewDecimal(gen NumberID) *Decimal {
	return &Decimal{gen: gen}
}

// Generate returns the next numeric ID as a decimal string.
func (d *Decimal) Generate() string {
	return strconv.FormatInt(d.gen.Generate(), 10)
}
