package utils

import "math"

// RoundDecimal rounds half away from zero to the given number of decimal
// places, e.g. RoundDecimal(1.005, 1) == 1.0 and RoundDecimal(2.25, 1) == 2.3.
func RoundDecimal(value float64, decimals int) float64 {
	pow := math.Pow10(decimals)
	return math.Round(value*pow) / pow
}
