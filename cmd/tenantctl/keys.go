// AngelaMos | 2026
// keys.go

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/tenant-backend/internal/auth"
)

func newKeysCommand(load configLoader) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Generate the ES256 key pair used to sign access tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			private, public := cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath
			if _, err := os.Stat(private); err == nil && !force {
				return fmt.Errorf("%s already exists, pass --force to replace it", private)
			}

			for _, p := range []string{private, public} {
				if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
					return fmt.Errorf("create key dir: %w", err)
				}
			}

			if err := auth.GenerateKeyPair(private, public); err != nil {
				return err
			}
			cmd.Printf("wrote %s and %s\n", private, public)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key pair")
	return cmd
}
