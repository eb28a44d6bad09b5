// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"strconv"
	"strings"
)

const (
	// unity is one point in scaled points.
	unity = 65536

	// maxInt is the largest integer a number may have.
	maxInt = 1<<31 - 1

	// maxDimen is the largest dimension, 16383.99998pt.
	maxDimen = 1<<30 - 1
)

// Dimen is a length in scaled points (1pt = 65536sp).
type Dimen int

// Pt returns the length of n points.
func Pt(n int) Dimen {
	return Dimen(n * unity)
}

// String formats the dimension the way \the prints it, e.g. "1.5pt".
func (d Dimen) String() string {
	var sb strings.Builder
	s := int(d)
	if s < 0 {
		sb.WriteByte('-')
		s = -s
	}
	sb.WriteString(strconv.Itoa(s / unity))
	sb.WriteByte('.')
	s = 10*(s%unity) + 5
	delta := 10
	for {
		if delta > unity {
			s = s + 0x8000 - 50000 // round the last digit
		}
		sb.WriteByte(byte('0' + s/unity))
		s = 10 * (s % unity)
		delta *= 10
		if s <= delta {
			break
		}
	}
	sb.WriteString("pt")
	return sb.String()
}

// GlueOrder is the order of infinity of a stretch or shrink component.
type GlueOrder int

const (
	Normal GlueOrder = iota
	Fil
	Fill
	Filll
)

// Glue is a dimension with optional stretch and shrink.
type Glue struct {
	Width        Dimen
	Stretch      Dimen
	StretchOrder GlueOrder
	Shrink       Dimen
	ShrinkOrder  GlueOrder
}

func (g Glue) String() string {
	var sb strings.Builder
	sb.WriteString(g.Width.String())
	if g.Stretch != 0 {
		sb.WriteString(" plus ")
		sb.WriteString(orderString(g.Stretch, g.StretchOrder))
	}
	if g.Shrink != 0 {
		sb.WriteString(" minus ")
		sb.WriteString(orderString(g.Shrink, g.ShrinkOrder))
	}
	return sb.String()
}

func orderString(d Dimen, order GlueOrder) string {
	if order == Normal {
		return d.String()
	}
	return strings.TrimSuffix(d.String(), "pt") + "fi" + strings.Repeat("l", int(order))
}

// unit is a physical unit as the fraction num/denom of a point.
type unit struct {
	num, denom int
}

var physicalUnits = map[string]unit{
	"pt": {1, 1},
	"pc": {12, 1},
	"in": {7227, 100},
	"bp": {7227, 7200},
	"cm": {7227, 254},
	"mm": {7227, 2540},
	"dd": {1238, 1157},
	"cc": {14856, 1157},
	"px": {7227, 7200},
}

// font relative units use the metrics of a 10pt roman font
var fontUnits = map[string]Dimen{
	"em": Pt(10),
	"ex": 281805, // 4.3pt
}

// roundDecimals converts the digits of a decimal fraction into
// scaled points, rounding the last bit.
func roundDecimals(digits []int) int {
	a := 0
	for k := len(digits) - 1; k >= 0; k-- {
		a = (a + digits[k]*2*unity) / 10
	}
	return (a + 1) / 2
}

// scaleUnit converts whole and frac (in units of 1/65536) of the given
// unit into scaled points. It reports false on overflow.
func scaleUnit(whole, frac int, u unit) (Dimen, bool) {
	if u.num != u.denom {
		w := whole * u.num / u.denom
		rem := whole * u.num % u.denom
		frac = (u.num*frac + unity*rem) / u.denom
		whole = w + frac/unity
		frac = frac % unity
	}
	if whole >= 1<<14 {
		return maxDimen, false
	}
	return Dimen(whole*unity + frac), true
}

// roman returns the lower case roman numeral for n, or "" when n <= 0.
func roman(n int) string {
	if n <= 0 {
		return ""
	}
	values := []int{1000, 900, 500, 400, 100, 90, 50, 40, 10, 9, 5, 4, 1}
	numerals := []string{"m", "cm", "d", "cd", "c", "xc", "l", "xl", "x", "ix", "v", "iv", "i"}
	var sb strings.Builder
	for i, v := range values {
		for n >= v {
			sb.WriteString(numerals[i])
			n -= v
		}
	}
	return sb.String()
}
