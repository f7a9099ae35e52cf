package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TheusHen/qrng/qrng/bits"
)

// Metric names used by Report.Metrics and Report.Undefined.
const (
	MetricLength           = "length"
	MetricZeros            = "zeros"
	MetricOnes             = "ones"
	MetricZeroProportion   = "zero_proportion"
	MetricOneProportion    = "one_proportion"
	MetricHammingWeight    = "hamming_weight"
	MetricShannon          = "shannon_entropy"
	MetricMinEntropy       = "min_entropy"
	MetricRuns             = "runs"
	MetricRunsExpected     = "runs_expected"
	MetricRunsZ            = "runs_z"
	MetricRunsPValue       = "runs_p_value"
	MetricChiSquare        = "chi_square"
	MetricChiSquarePValue  = "chi_square_p_value"
	MetricCompressionRatio = "compression_ratio"
)

// AutocorrelationMetric names the autocorrelation metric at lag.
func AutocorrelationMetric(lag int) string {
	return fmt.Sprintf("autocorrelation_lag%d", lag)
}

// Options selects optional parts of the analysis.
type Options struct {
	// Lags lists the autocorrelation lags to compute. Empty means 1 and 2.
	Lags []int
}

// DefaultLags are the autocorrelation lags computed by Analyze.
var DefaultLags = []int{1, 2}

// Report holds every metric of one analyzed sequence. Metrics that are
// mathematically undefined for the input are left at zero and listed in
// Undefined with the reason.
type Report struct {
	Length         int
	Zeros          int
	Ones           int
	ZeroProportion float64
	OneProportion  float64
	ShannonEntropy float64
	MinEntropy     float64

	Runs             RunsResult
	Autocorrelation  map[int]float64
	ChiSquare        ChiSquareResult
	CompressionRatio float64

	Undefined map[string]error
}

// Analyze computes the report with default options. It does not modify seq.
func Analyze(seq []bits.Bit) Report {
	return AnalyzeWith(seq, Options{})
}

// AnalyzeWith computes the report with the given options.
func AnalyzeWith(seq []bits.Bit, opts Options) Report {
	lags := opts.Lags
	if len(lags) == 0 {
		lags = DefaultLags
	}

	n := len(seq)
	ones := bits.Ones(seq)
	r := Report{
		Length:          n,
		Ones:            ones,
		Zeros:           n - ones,
		ShannonEntropy:  Shannon(seq),
		MinEntropy:      MinEntropy(seq),
		Autocorrelation: make(map[int]float64, len(lags)),
		Undefined:       make(map[string]error),
	}
	if n > 0 {
		r.ZeroProportion = float64(r.Zeros) / float64(n)
		r.OneProportion = float64(r.Ones) / float64(n)
	}

	r.Runs.Runs = Runs(seq)
	if n == 0 {
		r.Undefined[MetricRuns] = ErrEmptyInput
	}
	if rt, err := RunsTest(seq); err != nil {
		r.Undefined[MetricRunsZ] = err
	} else {
		r.Runs = rt
	}

	for _, lag := range lags {
		ac, err := Autocorrelation(seq, lag)
		if err != nil {
			r.Undefined[AutocorrelationMetric(lag)] = err
			continue
		}
		r.Autocorrelation[lag] = ac
	}

	if cs, err := ChiSquare(seq); err != nil {
		r.Undefined[MetricChiSquare] = err
	} else {
		r.ChiSquare = cs
	}

	if cr, err := CompressionRatio(seq); err != nil {
		r.Undefined[MetricCompressionRatio] = err
	} else {
		r.CompressionRatio = cr
	}
	return r
}

// Defined reports whether the named metric has a value.
func (r Report) Defined(name string) bool {
	switch name {
	case MetricRunsExpected, MetricRunsPValue:
		name = MetricRunsZ
	case MetricChiSquarePValue:
		name = MetricChiSquare
	}
	_, undefined := r.Undefined[name]
	return !undefined
}

// Metrics returns the defined metrics by name.
func (r Report) Metrics() map[string]float64 {
	m := map[string]float64{
		MetricLength:         float64(r.Length),
		MetricZeros:          float64(r.Zeros),
		MetricOnes:           float64(r.Ones),
		MetricZeroProportion: r.ZeroProportion,
		MetricOneProportion:  r.OneProportion,
		MetricHammingWeight:  float64(r.Ones),
		MetricShannon:        r.ShannonEntropy,
		MetricMinEntropy:     r.MinEntropy,
	}
	if r.Defined(MetricRuns) {
		m[MetricRuns] = float64(r.Runs.Runs)
	}
	if r.Defined(MetricRunsZ) {
		m[MetricRunsExpected] = r.Runs.Expected
		m[MetricRunsZ] = r.Runs.Z
		m[MetricRunsPValue] = r.Runs.PValue
	}
	for lag, v := range r.Autocorrelation {
		m[AutocorrelationMetric(lag)] = v
	}
	if r.Defined(MetricChiSquare) {
		m[MetricChiSquare] = r.ChiSquare.Statistic
		m[MetricChiSquarePValue] = r.ChiSquare.PValue
	}
	if r.Defined(MetricCompressionRatio) {
		m[MetricCompressionRatio] = r.CompressionRatio
	}
	return m
}

// Passes returns advisory checks for the defined tests: "chi_square" is true
// when the statistic is below the critical value and "runs" when |z| < 1.96.
// The report itself never passes or fails a sequence.
func (r Report) Passes() map[string]bool {
	p := make(map[string]bool, 2)
	if r.Defined(MetricChiSquare) {
		p[MetricChiSquare] = r.ChiSquare.Uniform()
	}
	if r.Defined(MetricRunsZ) {
		p[MetricRuns] = r.Runs.Z > -1.96 && r.Runs.Z < 1.96
	}
	return p
}

// UndefinedReasons returns the undefined metrics with their reason as text.
func (r Report) UndefinedReasons() map[string]string {
	out := make(map[string]string, len(r.Undefined))
	for k, err := range r.Undefined {
		out[k] = err.Error()
	}
	return out
}

// String renders the report for terminals.
func (r Report) String() string {
	var b strings.Builder
	line := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "%s\nRandomness analysis\n%s\n", line, line)
	fmt.Fprintf(&b, "Length: %d bits\n\n", r.Length)
	fmt.Fprintf(&b, "Entropy\n  Shannon:     %.4f (max 1.0)\n  Min-entropy: %.4f\n\n", r.ShannonEntropy, r.MinEntropy)
	fmt.Fprintf(&b, "Distribution\n  0s: %6.2f%%  1s: %6.2f%%  Hamming weight: %d\n\n",
		r.ZeroProportion*100, r.OneProportion*100, r.Ones)

	b.WriteString("Runs test\n")
	switch {
	case !r.Defined(MetricRuns):
		fmt.Fprintf(&b, "  undefined: %v\n", r.Undefined[MetricRuns])
	case !r.Defined(MetricRunsZ):
		fmt.Fprintf(&b, "  Runs: %d (z undefined: %v)\n", r.Runs.Runs, r.Undefined[MetricRunsZ])
	default:
		fmt.Fprintf(&b, "  Runs: %d (expected %.2f, z %.3f, p %.4f)\n",
			r.Runs.Runs, r.Runs.Expected, r.Runs.Z, r.Runs.PValue)
	}

	b.WriteString("\nAutocorrelation\n")
	lags := make([]int, 0, len(r.Autocorrelation))
	for lag := range r.Autocorrelation {
		lags = append(lags, lag)
	}
	sort.Ints(lags)
	for _, lag := range lags {
		fmt.Fprintf(&b, "  Lag-%d: %.4f\n", lag, r.Autocorrelation[lag])
	}
	for name, err := range r.Undefined {
		if strings.HasPrefix(name, "autocorrelation_") {
			fmt.Fprintf(&b, "  %s undefined: %v\n", strings.TrimPrefix(name, "autocorrelation_"), err)
		}
	}

	b.WriteString("\nChi-square\n")
	if r.Defined(MetricChiSquare) {
		verdict := "non-uniform"
		if r.ChiSquare.Uniform() {
			verdict = "uniform"
		}
		fmt.Fprintf(&b, "  Statistic: %.4f (critical %.3f, p %.4f) %s\n",
			r.ChiSquare.Statistic, r.ChiSquare.Critical, r.ChiSquare.PValue, verdict)
	} else {
		fmt.Fprintf(&b, "  undefined: %v\n", r.Undefined[MetricChiSquare])
	}

	b.WriteString("\nCompression (lz4)\n")
	if r.Defined(MetricCompressionRatio) {
		fmt.Fprintf(&b, "  Ratio: %.3f\n", r.CompressionRatio)
	} else {
		fmt.Fprintf(&b, "  undefined: %v\n", r.Undefined[MetricCompressionRatio])
	}
	b.WriteString(line + "\n")
	return b.String()
}
