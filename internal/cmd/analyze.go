package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheusHen/qrng/qrng"
	"github.com/TheusHen/qrng/qrng/analysis"
	"github.com/TheusHen/qrng/qrng/bits"
)

var (
	analyzeFile  string
	analyzeCount int
	analyzeLags  []int
	analyzeJSON  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [bits]",
	Short: "Report randomness metrics for a bit sequence",
	Long: `Analyze a sequence of '0' and '1' characters given as an argument, read
from a file ('-' for stdin), or freshly generated with --count.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "Read bits from file ('-' for stdin)")
	analyzeCmd.Flags().IntVarP(&analyzeCount, "count", "n", 0, "Generate this many bits from the configured source")
	analyzeCmd.Flags().IntSliceVar(&analyzeLags, "lags", analysis.DefaultLags, "Autocorrelation lags")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print JSON")
}

type analyzeOutput struct {
	Length    int                `json:"length"`
	Metrics   map[string]float64 `json:"metrics"`
	Passes    map[string]bool    `json:"passes"`
	Undefined map[string]string  `json:"undefined,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	seq, err := analyzeInput(cmd, args)
	if err != nil {
		return err
	}

	report := analysis.AnalyzeWith(seq, analysis.Options{Lags: analyzeLags})
	if analyzeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(analyzeOutput{
			Length:    report.Length,
			Metrics:   report.Metrics(),
			Passes:    report.Passes(),
			Undefined: report.UndefinedReasons(),
		})
	}
	fmt.Fprint(cmd.OutOrStdout(), report.String())
	return nil
}

func analyzeInput(cmd *cobra.Command, args []string) ([]bits.Bit, error) {
	sources := 0
	if len(args) == 1 {
		sources++
	}
	if analyzeFile != "" {
		sources++
	}
	if analyzeCount > 0 {
		sources++
	}
	if sources != 1 {
		return nil, fmt.Errorf("give exactly one of: a bit string, --file, --count")
	}

	switch {
	case len(args) == 1:
		return bits.Parse(args[0])
	case analyzeFile != "":
		return readBitsFile(cmd, analyzeFile)
	}

	ctx := cmd.Context()
	src, closeSource, err := cfg.OpenSource(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSource()
	return qrng.NewGenerator(src, cfg.Generate(logger, nil)).GenerateBits(ctx, analyzeCount)
}

func readBitsFile(cmd *cobra.Command, path string) ([]bits.Bit, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return bits.Parse(strings.Join(strings.Fields(string(data)), ""))
}
