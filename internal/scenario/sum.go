package scenario

import "math"

// compensatedSum accumulates float64 values with Kahan-Babuska compensation
// so aggregate revenue checks hold to the cent even over large parcel counts.
type compensatedSum struct {
	sum float64
	c   float64
}

func (s *compensatedSum) Add(v float64) {
	t := s.sum + v
	if math.Abs(s.sum) >= math.Abs(v) {
		s.c += (s.sum - t) + v
	} else {
		s.c += (v - t) + s.sum
	}
	s.sum = t
}

func (s *compensatedSum) Total() float64 {
	return s.sum + s.c
}

// roundCents rounds a monetary amount to the nearest cent.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
