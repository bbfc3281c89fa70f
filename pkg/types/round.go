package types

import "math"

// round rounds v to places decimal digits, matching Python's round() behavior
// closely enough for the 4/2/1-decimal roundings the opportunity model uses.
func round(v float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(v*mult) / mult
}
