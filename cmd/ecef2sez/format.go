package main

import (
	"math"
	"strconv"
	"strings"
)

// formatKm renders v as the shortest decimal string that round-trips to the
// same float64. Values with a decimal exponent in [-4, 16) use positional
// notation and always carry a fractional part ("-1.0", "0.0001"); others use
// scientific notation ("1e-05", "1.5e+16").
func formatKm(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
