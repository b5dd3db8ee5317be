package geo

import (
	"fmt"
	"math"
)

// FormatDistance renders a distance for display: whole feet below one
// mile, miles with one decimal otherwise.
func FormatDistance(miles float64) string {
	if miles < 1 {
		return fmt.Sprintf("%d ft", int(math.Round(miles*feetPerMile)))
	}
	return fmt.Sprintf("%.1f mi", miles)
}
