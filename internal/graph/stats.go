package graph

import (
	"math"
	"sort"
)

// Summary describes a sample of interval lengths in days
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Q1       float64 `json:"q1"`
	Q3       float64 `json:"q3"`
	IQR      float64 `json:"iqr"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Negative int     `json:"negative"`
}

// Summarize computes descriptive statistics. An empty sample yields a zero
// Summary with Count 0.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	var negative int
	for _, v := range sorted {
		sum += v
		if v < 0 {
			negative++
		}
	}
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	return Summary{
		Count:    len(sorted),
		Mean:     sum / float64(len(sorted)),
		Median:   quantile(sorted, 0.5),
		Q1:       q1,
		Q3:       q3,
		IQR:      q3 - q1,
		Min:      sorted[0],
		Max:      sorted[len(sorted)-1],
		Negative: negative,
	}
}

// quantile uses linear interpolation between closest ranks on a sorted sample
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Interval is a confidence interval in the unit of its metric
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// z for a two-sided 95% interval
const z95 = 1.959963984540054

// WilsonInterval returns the 95% Wilson score interval for successes out of
// n trials, as percentages. ok is false when n is zero.
func WilsonInterval(successes, n int) (Interval, bool) {
	if n <= 0 {
		return Interval{}, false
	}
	p := float64(successes) / float64(n)
	nf := float64(n)
	z2 := z95 * z95
	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	margin := z95 * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf)) / denom
	return Interval{
		Low:  math.Max(0, center-margin) * 100,
		High: math.Min(1, center+margin) * 100,
	}, true
}

// Percent returns part/whole*100, and false for an empty denominator
func Percent(part, whole int) (float64, bool) {
	if whole <= 0 {
		return 0, false
	}
	return float64(part) / float64(whole) * 100, true
}
