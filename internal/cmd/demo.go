package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheusHen/qrng/qrng"
)

var (
	demoMessage string
	demoHKDF    bool
	demoJSON    bool
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Generate a key and round-trip a message through AES-CBC",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		src, closeSource, err := cfg.OpenSource(ctx)
		if err != nil {
			return err
		}
		defer closeSource()

		gen := qrng.NewGenerator(src, cfg.Generate(logger, nil))
		res, err := gen.RunDemo(ctx, qrng.KeyRequest{
			KeySizeBits: cfg.KeyBits,
			HKDF:        demoHKDF,
		}, demoMessage)
		if err != nil {
			return err
		}

		if demoJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "key:        %s\n", res.KeyHex)
		if res.SaltHex != "" {
			fmt.Fprintf(out, "kdf salt:   %s\n", res.SaltHex)
		}
		fmt.Fprintf(out, "iv:         %s\n", res.IVHex)
		fmt.Fprintf(out, "ciphertext: %s\n", res.CiphertextHex)
		fmt.Fprintf(out, "decrypted:  %s\n", res.Decrypted)
		fmt.Fprintf(out, "draws:      %d (yield %.3f)\n", res.Draws, res.Yield)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().StringVarP(&demoMessage, "message", "m", "Hello, quantum world!", "Message to encrypt")
	demoCmd.Flags().BoolVar(&demoHKDF, "hkdf", false, "Derive the key with HKDF-SHA256")
	demoCmd.Flags().BoolVar(&demoJSON, "json", false, "Print JSON")
}
