package cmd

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/TheusHen/qrng/qrng/crypto"
)

var (
	cipherKey string
	cipherIV  string
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt [message]",
	Short: "Encrypt a message with AES-CBC",
	Long:  `Encrypt a message (or stdin) under a hex key. Prints the IV and ciphertext in hex.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := parseKeyFlag()
		if err != nil {
			return err
		}
		msg, err := messageArg(cmd, args)
		if err != nil {
			return err
		}
		sealed, err := crypto.Encrypt(key, msg)
		if err != nil {
			return err
		}
		iv, ct := sealed.Hex()
		fmt.Fprintf(cmd.OutOrStdout(), "iv=%s\nciphertext=%s\n", iv, ct)
		return nil
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <ciphertext-hex>",
	Short: "Decrypt an AES-CBC ciphertext",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := parseKeyFlag()
		if err != nil {
			return err
		}
		plain, err := crypto.DecryptHex(key, cipherIV, args[0])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(plain)
		return err
	},
}

func init() {
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(decryptCmd)

	for _, c := range []*cobra.Command{encryptCmd, decryptCmd} {
		c.Flags().StringVarP(&cipherKey, "key", "k", "", "AES key in hex (16, 24 or 32 bytes)")
		_ = c.MarkFlagRequired("key")
	}
	decryptCmd.Flags().StringVar(&cipherIV, "iv", "", "IV in hex")
	_ = decryptCmd.MarkFlagRequired("iv")
}

func parseKeyFlag() ([]byte, error) {
	key, err := hex.DecodeString(cipherKey)
	if err != nil {
		return nil, fmt.Errorf("--key: %w", crypto.ErrInvalidHexPayload)
	}
	return key, nil
}

func messageArg(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 1 {
		return []byte(args[0]), nil
	}
	return io.ReadAll(cmd.InOrStdin())
}
