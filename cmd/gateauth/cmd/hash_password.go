package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/gateAuth/password"
	"github.com/spf13/cobra"
)

var hashAlgorithm string

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash a password read from stdin for use with useEncryptedPasswords",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hasher, err := password.NewHasher(password.Algorithm(hashAlgorithm))
		if err != nil {
			return fmt.Errorf("%w: %q", err, hashAlgorithm)
		}

		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no password on stdin")
		}
		plain := strings.TrimRight(line, "\r\n")

		encoded, err := hasher.Hash(plain)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), encoded)
		return err
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
	hashPasswordCmd.Flags().StringVar(&hashAlgorithm, "algorithm", string(password.AlgorithmBcrypt), "Hash algorithm: bcrypt or argon2id")
}
