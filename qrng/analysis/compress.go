package analysis

import (
	"bytes"
	"errors"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/TheusHen/qrng/qrng/bits"
)

var ErrCompressionFailed = errors.New("analysis: compression failed")

// writerPool reuses LZ4 writers across reports.
var writerPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewWriter(nil)
	},
}

// CompressionRatio returns the LZ4 frame size divided by the packed size of
// the whole bytes of seq. Random data does not compress, so values near or
// above 1 are expected; structured sequences score well below 1.
func CompressionRatio(seq []bits.Bit) (float64, error) {
	if len(seq) == 0 {
		return 0, ErrEmptyInput
	}
	whole := len(seq) / 8 * 8
	if whole == 0 {
		return 0, ErrTooShort
	}
	packed, err := bits.Pack(seq, whole)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	w := writerPool.Get().(*lz4.Writer)
	defer writerPool.Put(w)

	w.Reset(&buf)
	_ = w.Apply(lz4.CompressionLevelOption(lz4.Level9))
	if _, err := w.Write(packed); err != nil {
		return 0, ErrCompressionFailed
	}
	if err := w.Close(); err != nil {
		return 0, ErrCompressionFailed
	}
	return float64(buf.Len()) / float64(len(packed)), nil
}
