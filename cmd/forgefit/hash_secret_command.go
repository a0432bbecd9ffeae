package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newHashSecretCommand() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-secret [secret]",
		Short: "Print a bcrypt hash for webhook_secret_hash",
		Long:  "Print a bcrypt hash for webhook_secret_hash. The secret is read from stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		Annotations: map[string]string{
			skipConfigLoadAnnotation: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := ""
			if len(args) == 1 {
				secret = args[0]
			} else {
				line, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
				secret = line
			}
			hash, err := hashSecret(secret, cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost factor")
	return cmd
}

// hashSecret returns the bcrypt hash of secret.
// PRE: secret is non-empty after trimming
// POST: Returns a hash accepted by bcrypt.CompareHashAndPassword
func hashSecret(secret string, cost int) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", errors.New("secret must not be empty")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("hashing secret: %w", err)
	}
	return string(hash), nil
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
