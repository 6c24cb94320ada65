package blank

import (
	"math"
	"strings"
)

// Panel dimensions are stored as a single decimal number encoding feet
// plus a fractional-inch remainder. Two different readings of that code
// exist in the field; both are kept as separately named conversions and
// must not be merged until confirmed against real measurement samples.

// DecodeEighthFoot reads the first decimal digit as eighths of a foot
// and discards anything past it: 6.3 -> 6 + 3/8 = 6.375. This is the
// quantizing legacy reading.
func DecodeEighthFoot(code float64) float64 {
	feet := math.Trunc(code)
	digit := math.Floor((code-feet)*10 + 1e-9)
	return feet + digit/8
}

// DecodeInchTenths reads the full fractional part, scaled by ten, as an
// inch count on an 8-inch-per-foot base: 6.35 -> 6 + 3.5/8 = 6.4375.
// Agrees with DecodeEighthFoot on single-digit codes.
func DecodeInchTenths(code float64) float64 {
	feet := math.Trunc(code)
	return feet + (code-feet)*10/8
}

// Design type classifiers. Embossed and CNC-routed panels need extra
// trim allowance; WPC boards are pre-sized.
const (
	DesignEmboss   = "EMBOSS"
	DesignCNC      = "CNC"
	DesignWPCCNC   = "WPC-CNC"
	DesignPlain    = "PLAIN"
	DesignWPCPlain = "WPC-PLAIN"
)

// MarginFor returns the manufacturing margin added to both dimensions
// for a design type. Unknown types get no margin.
func MarginFor(designType string) float64 {
	switch strings.ToUpper(strings.TrimSpace(designType)) {
	case DesignEmboss, DesignCNC, DesignWPCCNC:
		return 1.2
	case DesignPlain:
		return 1.0
	default:
		return 0
	}
}

// Required decodes a unit's encoded dimensions and applies the design
// margin, producing the minimum blank size the unit can be cut from.
func Required(widthCode, heightCode float64, designType string) (w, h float64) {
	m := MarginFor(designType)
	return DecodeInchTenths(widthCode) + m, DecodeInchTenths(heightCode) + m
}
