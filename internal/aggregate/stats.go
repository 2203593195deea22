package aggregate

import (
	"math"
	"sort"
)

// runningStats accumulates count, sum, min/max and variance in a
// single pass using Welford's online algorithm, so the consolidated
// scan never revisits a transaction per metric.
type runningStats struct {
	count int64
	sum   float64
	min   float64
	max   float64
	mean  float64
	m2    float64
}

func (s *runningStats) add(x float64) {
	s.count++
	s.sum += x
	if s.count == 1 {
		s.min, s.max = x, x
	} else {
		if x < s.min {
			s.min = x
		}
		if x > s.max {
			s.max = x
		}
	}
	delta := x - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (x - s.mean)
}

// stddev returns the sample standard deviation; 0 when fewer than two
// values have been seen (the caller maps that to "No Transactions").
func (s *runningStats) stddev() float64 {
	if s.count < 2 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.count-1))
}

// median computes the 50th percentile by linear interpolation.
// The input is sorted in place.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sort.Float64s(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}
