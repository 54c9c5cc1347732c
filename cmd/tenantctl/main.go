// AngelaMos | 2026
// main.go

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/tenant-backend/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "tenantctl",
		Short:         "Operate the tenant backend: schema, seed data, keys and reactions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	root.AddCommand(
		newMigrateCommand(load),
		newSeedCommand(load),
		newReconcileCommand(load),
		newKeysCommand(load),
	)
	return root
}
