// ema.go
package indicator

// EMA computes the exponential moving average with alpha = 2/(period+1),
// seeded at the first value. Returns nil on empty input or bad period.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	ema := make([]float64, len(values))
	alpha := 2.0 / (float64(period) + 1.0)
	ema[0] = values[0]
	for i := 1; i < len(values); i++ {
		ema[i] = alpha*values[i] + (1-alpha)*ema[i-1]
	}
	return ema
}

// SMA computes the simple moving average; the first period-1 slots are zero.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	sma := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			sma[i] = sum / float64(period)
		}
	}
	return sma
}
