package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newVaultCmd() *cobra.Command {
	vaultCmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage vaults",
	}

	vaultCmd.AddCommand(
		newVaultCreateCmd(),
		newVaultListCmd(),
		newVaultDeleteCmd(),
		newVaultExportCmd(),
		newVaultImportCmd(),
		newVaultCleanupCmd(),
	)
	return vaultCmd
}

func newVaultCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new empty vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := buildEngine()
			if err != nil {
				return fail(err)
			}

			if err := engine.CreateVault(cmd.Context(), args[0]); err != nil {
				return fail(err)
			}
			fmt.Printf("%s vault %s created\n", green("✓"), bold(args[0]))
			return nil
		},
	}
}

func newVaultListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List vaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := buildEngine()
			if err != nil {
				return fail(err)
			}

			vaults, err := engine.ListVaults(cmd.Context())
			if err != nil {
				return fail(err)
			}
			for _, name := range vaults {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newVaultDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a vault and all its namespaces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Printf("%s this permanently deletes vault %s; re-run with --force to confirm\n",
					yellow("warning:"), bold(args[0]))
				return nil
			}

			engine, _, err := buildEngine()
			if err != nil {
				return fail(err)
			}
			if err := engine.DeleteVault(cmd.Context(), args[0]); err != nil {
				return fail(err)
			}
			fmt.Printf("%s vault %s deleted\n", green("✓"), bold(args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation")
	return cmd
}

func newVaultExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Export a vault to a portable encrypted blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := buildEngine()
			if err != nil {
				return fail(err)
			}

			blob, err := engine.ExportVault(cmd.Context(), args[0])
			if err != nil {
				return fail(err)
			}

			if output == "" || output == "-" {
				_, err = os.Stdout.Write(blob)
				return err
			}
			if err := os.WriteFile(output, blob, 0o600); err != nil {
				return fail(err)
			}
			fmt.Printf("%s exported %d bytes to %s\n", green("✓"), len(blob), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newVaultImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <name> <file>",
		Short: "Import a vault from an exported blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[1])
			if err != nil {
				return fail(err)
			}

			engine, _, err := buildEngine()
			if err != nil {
				return fail(err)
			}
			if err := engine.ImportVault(cmd.Context(), args[0], blob); err != nil {
				return fail(err)
			}
			fmt.Printf("%s vault %s imported\n", green("✓"), bold(args[0]))
			return nil
		},
	}
}

func newVaultCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <name>",
		Short: "Remove expired namespaces from a vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := buildEngine()
			if err != nil {
				return fail(err)
			}

			removed, err := engine.CleanupVault(cmd.Context(), args[0])
			if err != nil {
				return fail(err)
			}
			if removed {
				fmt.Printf("%s expired namespaces removed\n", green("✓"))
			} else {
				fmt.Println("nothing to clean up")
			}
			return nil
		},
	}
}
