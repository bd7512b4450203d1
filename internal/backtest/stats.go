package backtest

import "math"

const weeksPerYear = 52

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the sample standard deviation.
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// sharpe is the weekly Sharpe ratio: mean weekly return over its
// standard deviation. Zero when the deviation is degenerate.
func sharpe(weekly []float64) float64 {
	sd := stdev(weekly)
	if sd == 0 {
		return 0
	}
	return mean(weekly) / sd
}

// maxDrawdown walks the compounded equity curve and returns the largest
// peak-to-trough loss as a positive fraction.
func maxDrawdown(weekly []float64) float64 {
	equity := 1.0
	peak := 1.0
	var worst float64
	for _, r := range weekly {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}

// confidence95 is the normal-approximation 95% confidence interval for
// the mean weekly return.
func confidence95(weekly []float64) (lo, hi float64) {
	if len(weekly) == 0 {
		return 0, 0
	}
	m := mean(weekly)
	margin := 1.96 * stdev(weekly) / math.Sqrt(float64(len(weekly)))
	return m - margin, m + margin
}

// annualize compounds a total return earned over n weeks to a yearly
// figure.
func annualize(total float64, n int) float64 {
	if n == 0 || total <= -1 {
		return 0
	}
	return math.Pow(1+total, weeksPerYear/float64(n)) - 1
}

// compound folds weekly returns into a total return.
func compound(weekly []float64) float64 {
	equity := 1.0
	for _, r := range weekly {
		equity *= 1 + r
	}
	return equity - 1
}
