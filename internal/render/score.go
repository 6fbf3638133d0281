package render

import "fmt"

// Score is the two-segment donut shown above the advice. The values are
// fixed and not derived from the scan.
type Score struct {
	Value int
	Rest  int
	Color string
}

// CosmeticScore returns the fixed 80/20 donut.
func CosmeticScore() Score {
	return Score{Value: 80, Rest: 20, Color: "#183CDD"}
}

// DashArray is the SVG stroke-dasharray for a circle with circumference 100.
func (s Score) DashArray() string {
	return fmt.Sprintf("%d %d", s.Value, s.Rest)
}
