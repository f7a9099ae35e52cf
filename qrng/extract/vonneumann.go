package extract

import "github.com/TheusHen/qrng/qrng/bits"

// Extractor turns one raw batch into output bits.
// Implementations must be deterministic and keep no state between calls.
type Extractor interface {
	Extract(raw []bits.Bit) []bits.Bit
}

// Stats accounts for every input bit of one Debias call.
type Stats struct {
	Input     int // raw bits supplied
	Pairs     int // complete pairs examined
	Kept      int // pairs that produced an output bit (01 or 10)
	Discarded int // equal pairs (00 or 11)
	Dropped   int // trailing unpaired bit, 0 or 1
}

// Yield returns output bits per input bit.
// Unbiased input yields about 0.25 on average; biased input yields less.
func (s Stats) Yield() float64 {
	if s.Input == 0 {
		return 0
	}
	return float64(s.Kept) / float64(s.Input)
}

// Debias applies the Von Neumann extractor to raw.
//
// Input is split into consecutive non-overlapping pairs: 01 maps to 0, 10 maps
// to 1, 00 and 11 produce nothing. A trailing unpaired bit is dropped and is
// never carried into a later call.
func Debias(raw []bits.Bit) []bits.Bit {
	out, _ := DebiasStats(raw)
	return out
}

// DebiasStats is Debias with yield accounting.
func DebiasStats(raw []bits.Bit) ([]bits.Bit, Stats) {
	st := Stats{Input: len(raw), Pairs: len(raw) / 2, Dropped: len(raw) % 2}
	out := make([]bits.Bit, 0, st.Pairs)
	for i := 0; i+1 < len(raw); i += 2 {
		b0, b1 := raw[i]&1, raw[i+1]&1
		if b0 == b1 {
			st.Discarded++
			continue
		}
		// 01 -> 0, 10 -> 1: the output is the first bit of the pair.
		out = append(out, b0)
		st.Kept++
	}
	return out, st
}

// VonNeumann is the Extractor form of Debias.
type VonNeumann struct{}

func (VonNeumann) Extract(raw []bits.Bit) []bits.Bit { return Debias(raw) }

// Passthrough returns a copy of the raw bits unchanged. Used when debiasing is disabled.
type Passthrough struct{}

func (Passthrough) Extract(raw []bits.Bit) []bits.Bit {
	out := make([]bits.Bit, len(raw))
	copy(out, raw)
	return out
}

// For selects the extractor matching the debias flag.
func For(debias bool) Extractor {
	if debias {
		return VonNeumann{}
	}
	return Passthrough{}
}
