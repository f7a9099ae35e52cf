package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/TheusHen/qrng/qrng/bits"
)

var (
	ErrEmptyInput   = errors.New("analysis: empty input")
	ErrZeroVariance = errors.New("analysis: zero variance")
	ErrLagTooLarge  = errors.New("analysis: lag not smaller than sequence length")
	ErrInvalidLag   = errors.New("analysis: lag must be positive")
	ErrTooShort     = errors.New("analysis: sequence shorter than one byte")
)

// ChiSquareCritical is the 0.05 critical value for one degree of freedom.
const ChiSquareCritical = 3.841

// Shannon returns the Shannon entropy in bits per symbol, in [0, 1].
// It is 0 for an empty or single-valued sequence.
func Shannon(seq []bits.Bit) float64 {
	if len(seq) == 0 {
		return 0
	}
	n := float64(len(seq))
	h := 0.0
	for _, c := range []int{bits.Zeros(seq), bits.Ones(seq)} {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

// MinEntropy returns -log2(max(p0, p1)), or 0 for an empty sequence.
func MinEntropy(seq []bits.Bit) float64 {
	if len(seq) == 0 {
		return 0
	}
	ones := bits.Ones(seq)
	most := max(ones, len(seq)-ones)
	// -log2(1) is -0; normalize.
	return 0 - math.Log2(float64(most)/float64(len(seq)))
}

// Runs counts maximal runs of identical consecutive bits.
func Runs(seq []bits.Bit) int {
	if len(seq) == 0 {
		return 0
	}
	runs := 1
	for i := 1; i < len(seq); i++ {
		if seq[i] != seq[i-1] {
			runs++
		}
	}
	return runs
}

// RunsResult compares the observed number of runs with a fair coin.
type RunsResult struct {
	Runs     int
	Expected float64 // (n+1)/2
	Variance float64 // (n-1)/4
	Z        float64
	PValue   float64 // two-sided
}

// RunsTest computes the runs deviation for i.i.d. Bernoulli(0.5) bits.
// It needs at least two bits.
func RunsTest(seq []bits.Bit) (RunsResult, error) {
	n := len(seq)
	if n == 0 {
		return RunsResult{}, ErrEmptyInput
	}
	r := RunsResult{
		Runs:     Runs(seq),
		Expected: float64(n+1) / 2,
		Variance: float64(n-1) / 4,
	}
	if r.Variance == 0 {
		return RunsResult{}, fmt.Errorf("%w: runs test needs at least 2 bits", ErrZeroVariance)
	}
	r.Z = (float64(r.Runs) - r.Expected) / math.Sqrt(r.Variance)
	r.PValue = math.Erfc(math.Abs(r.Z) / math.Sqrt2)
	return r, nil
}

// Autocorrelation returns the lag-k autocorrelation of seq with bits mapped
// to -1 and +1. Products are mean-centered and divided by the total sum of
// squares, so the value lies in [-1, 1].
func Autocorrelation(seq []bits.Bit, lag int) (float64, error) {
	n := len(seq)
	switch {
	case lag < 1:
		return 0, fmt.Errorf("%w: %d", ErrInvalidLag, lag)
	case n == 0:
		return 0, ErrEmptyInput
	case n <= lag:
		return 0, fmt.Errorf("%w: lag %d, length %d", ErrLagTooLarge, lag, n)
	}

	x := make([]float64, n)
	mean := 0.0
	for i, b := range seq {
		x[i] = float64(2*int(b) - 1)
		mean += x[i]
	}
	mean /= float64(n)

	var num, den float64
	for i := range x {
		d := x[i] - mean
		den += d * d
		if i+lag < n {
			num += d * (x[i+lag] - mean)
		}
	}
	if den == 0 {
		return 0, ErrZeroVariance
	}
	return num / den, nil
}

// ChiSquareResult is the goodness of fit of the 0/1 counts against 50/50.
type ChiSquareResult struct {
	Statistic float64
	PValue    float64
	Critical  float64
}

// Uniform reports whether the statistic is below the 0.05 critical value.
func (c ChiSquareResult) Uniform() bool { return c.Statistic < c.Critical }

// ChiSquare runs the one degree of freedom uniformity test.
func ChiSquare(seq []bits.Bit) (ChiSquareResult, error) {
	if len(seq) == 0 {
		return ChiSquareResult{}, ErrEmptyInput
	}
	expected := float64(len(seq)) / 2
	d0 := float64(bits.Zeros(seq)) - expected
	d1 := float64(bits.Ones(seq)) - expected
	stat := (d0*d0 + d1*d1) / expected
	return ChiSquareResult{
		Statistic: stat,
		PValue:    math.Erfc(math.Sqrt(stat / 2)),
		Critical:  ChiSquareCritical,
	}, nil
}
