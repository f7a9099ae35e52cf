package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheusHen/qrng/qrng"
	"github.com/TheusHen/qrng/qrng/bits"
	"github.com/TheusHen/qrng/qrng/generate"
	"github.com/TheusHen/qrng/qrng/keys"
	"github.com/TheusHen/qrng/qrng/source"
)

var (
	keygenBits     int
	keygenChannels int
	keygenBudget   int
	keygenNoDebias bool
	keygenHKDF     bool
	keygenCount    int
	keygenJSON     bool
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate AES keys from the configured trial source",
	Long: `Generate one or more AES keys. Each key is built from its own generation
request; with --count greater than one the requests run in parallel.`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().IntVarP(&keygenBits, "bits", "b", 0, "Key size in bits: 128, 192 or 256 (default: QRNG_KEY_BITS)")
	keygenCmd.Flags().IntVar(&keygenChannels, "channels", 0, "Channels per trial call (default: QRNG_CHANNELS)")
	keygenCmd.Flags().IntVar(&keygenBudget, "budget", 0, "Maximum trial calls per key (default: QRNG_RETRY_BUDGET)")
	keygenCmd.Flags().BoolVar(&keygenNoDebias, "no-debias", false, "Use raw outcomes without Von Neumann extraction")
	keygenCmd.Flags().BoolVar(&keygenHKDF, "hkdf", false, "Derive the key with HKDF-SHA256 instead of truncation")
	keygenCmd.Flags().IntVarP(&keygenCount, "count", "n", 1, "Number of keys to generate")
	keygenCmd.Flags().BoolVar(&keygenJSON, "json", false, "Print JSON")
}

type keygenOutput struct {
	KeyHex  string `json:"key_hex"`
	SaltHex string `json:"salt_hex,omitempty"`
	Draws   int    `json:"draws,omitempty"`
}

func runKeygen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	size := keygenBits
	if size == 0 {
		size = cfg.KeyBits
	}
	if err := keys.ValidateSize(size); err != nil {
		return err
	}
	if keygenCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	src, closeSource, err := cfg.OpenSource(ctx)
	if err != nil {
		return err
	}
	defer closeSource()

	gc := cfg.Generate(logger, nil)
	if keygenChannels > 0 {
		gc.ChannelCount = keygenChannels
	}
	if keygenBudget > 0 {
		gc.RetryBudget = keygenBudget
	}
	if keygenNoDebias {
		gc.Debias = false
	}

	var out []keygenOutput
	if keygenCount == 1 {
		kr, err := qrng.NewGenerator(src, gc).GenerateKey(ctx, qrng.KeyRequest{
			KeySizeBits: size,
			HKDF:        keygenHKDF,
		})
		if err != nil {
			return err
		}
		out = append(out, keygenOutput{KeyHex: kr.Key.Hex(), SaltHex: hexOrEmpty(kr.Salt), Draws: kr.Generation.Draws})
	} else {
		// Sources are safe for concurrent use; every request still owns its stream.
		shared := func() (source.TrialSource, error) { return src, nil }
		streams, err := generate.GenerateMany(ctx, shared, gc, size, keygenCount)
		if err != nil {
			return err
		}
		for _, s := range streams {
			o, err := deriveOutput(s, size)
			if err != nil {
				return err
			}
			out = append(out, o)
		}
	}

	if keygenJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for _, o := range out {
		if o.SaltHex != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s salt=%s\n", o.KeyHex, o.SaltHex)
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), o.KeyHex)
	}
	return nil
}

func deriveOutput(seq []bits.Bit, size int) (keygenOutput, error) {
	if keygenHKDF {
		k, salt, err := keys.DeriveHKDF(seq, size, nil)
		if err != nil {
			return keygenOutput{}, err
		}
		return keygenOutput{KeyHex: k.Hex(), SaltHex: hex.EncodeToString(salt)}, nil
	}
	k, err := keys.Derive(seq, size)
	if err != nil {
		return keygenOutput{}, err
	}
	return keygenOutput{KeyHex: k.Hex()}, nil
}

func hexOrEmpty(b []byte) string {
	if b == nil {
		return ""
	}
	return hex.EncodeToString(b)
}
