package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hoddor.sh/graph"
	"hoddor.sh/internal/config"
	"hoddor.sh/internal/storage"
	"hoddor.sh/vault"
)

func newGraphCmd() *cobra.Command {
	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "Manage a vault's encrypted knowledge graph",
	}

	graphCmd.AddCommand(
		newGraphBackupCmd(),
		newGraphRestoreCmd(),
	)
	return graphCmd
}

func buildGraphPersistence(cfg *config.Config, keys vault.IdentityKeys) (*graph.PersistenceService, error) {
	store, err := graph.OpenDefault(cfg.Graph.DSN, graph.StoreConfig{
		EmbeddingDim: cfg.Graph.EmbeddingDim,
	})
	if err != nil {
		return nil, err
	}

	return graph.NewPersistenceService(
		store,
		storage.NewFileStorage(cfg.Storage.RootDir),
		cfg.Graph.BackupPath,
		graph.EncryptionConfig{Recipient: keys.PublicKey, Identity: keys.PrivateKey},
	), nil
}

func newGraphBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <vault>",
		Short: "Write an encrypted backup of the vault's graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cfg, err := buildEngine()
			if err != nil {
				return fail(err)
			}

			passphrase, err := promptPassphrase()
			if err != nil {
				return fail(err)
			}
			keys, err := engine.DeriveVaultIdentity(cmd.Context(), passphrase, args[0])
			if err != nil {
				return fail(err)
			}

			service, err := buildGraphPersistence(cfg, keys)
			if err != nil {
				return fail(err)
			}

			if err := service.Backup(cmd.Context(), args[0]); err != nil {
				return fail(err)
			}
			fmt.Printf("%s graph backup written for vault %s\n", green("✓"), bold(args[0]))
			return nil
		},
	}
}

func newGraphRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <vault>",
		Short: "Restore the vault's graph from its encrypted backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cfg, err := buildEngine()
			if err != nil {
				return fail(err)
			}

			passphrase, err := promptPassphrase()
			if err != nil {
				return fail(err)
			}
			keys, err := engine.DeriveVaultIdentity(cmd.Context(), passphrase, args[0])
			if err != nil {
				return fail(err)
			}

			service, err := buildGraphPersistence(cfg, keys)
			if err != nil {
				return fail(err)
			}

			backup, err := service.Restore(cmd.Context(), args[0])
			if err != nil {
				return fail(err)
			}
			fmt.Printf("%s restored %d nodes and %d edges\n", green("✓"), len(backup.Nodes), len(backup.Edges))
			return nil
		},
	}
}
