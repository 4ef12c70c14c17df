package rank

// Point is a measure for one period, e.g. monthly sales keyed "2013-07".
type Point struct {
	Period string
	Value  float64
}

// Change compares a period with the one before it.
type Change struct {
	Period   string
	Value    float64
	Previous *float64 // nil for the first period
	Delta    *float64
	Percent  *float64 // nil when there is no previous period or it is 0
}

// PeriodOverPeriod pairs every point with its predecessor in the given
// order, the LAG(value) OVER (ORDER BY period) comparison. Callers sort the
// points; lag picks how many periods back to compare (1 for month over
// month on monthly points, 12 for year over year).
func PeriodOverPeriod(points []Point, lag int) []Change {
	if lag < 1 {
		lag = 1
	}
	out := make([]Change, len(points))
	for i, p := range points {
		c := Change{Period: p.Period, Value: p.Value}
		if i >= lag {
			prev := points[i-lag].Value
			delta := p.Value - prev
			c.Previous = &prev
			c.Delta = &delta
			if prev != 0 {
				pct := delta / prev * 100
				c.Percent = &pct
			}
		}
		out[i] = c
	}
	return out
}
