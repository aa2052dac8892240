package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newNamespaceCmd() *cobra.Command {
	nsCmd := &cobra.Command{
		Use:     "namespace",
		Aliases: []string{"ns"},
		Short:   "Manage encrypted namespaces inside a vault",
	}

	nsCmd.AddCommand(
		newNamespaceSetCmd(),
		newNamespaceGetCmd(),
		newNamespaceRemoveCmd(),
		newNamespaceListCmd(),
	)
	return nsCmd
}

func newNamespaceSetCmd() *cobra.Command {
	var (
		ttl     int64
		replace bool
		input   string
	)

	cmd := &cobra.Command{
		Use:   "set <vault> <namespace> [data]",
		Short: "Encrypt and store a payload under a namespace",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload []byte
			switch {
			case len(args) == 3:
				payload = []byte(args[2])
			case input != "":
				data, err := os.ReadFile(input)
				if err != nil {
					return fail(err)
				}
				payload = data
			default:
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fail(err)
				}
				payload = data
			}

			engine, _, err := buildEngine()
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

			if err := engine.UpsertNamespace(cmd.Context(), args[0], keys.PublicKey, args[1], payload, ttl, replace); err != nil {
				return fail(err)
			}
			fmt.Printf("%s namespace %s stored (%d bytes)\n", green("✓"), bold(args[1]), len(payload))
			return nil
		},
	}

	cmd.Flags().Int64Var(&ttl, "ttl", 0, "expiry in seconds (0 = never)")
	cmd.Flags().BoolVar(&replace, "replace", false, "replace an existing namespace")
	cmd.Flags().StringVarP(&input, "input", "i", "", "read payload from file")
	return cmd
}

func newNamespaceGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <vault> <namespace>",
		Short: "Decrypt and print a namespace payload",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := buildEngine()
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

			data, err := engine.ReadNamespace(cmd.Context(), args[0], keys.PrivateKey, args[1])
			if err != nil {
				return fail(err)
			}

			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func newNamespaceRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <vault> <namespace>",
		Aliases: []string{"remove"},
		Short:   "Remove a namespace from a vault",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := buildEngine()
			if err != nil {
				return fail(err)
			}

			if err := engine.RemoveNamespace(cmd.Context(), args[0], args[1]); err != nil {
				return fail(err)
			}
			fmt.Printf("%s namespace %s removed\n", green("✓"), bold(args[1]))
			return nil
		},
	}
}

func newNamespaceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls <vault>",
		Aliases: []string{"list"},
		Short:   "List the namespaces in a vault",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := buildEngine()
			if err != nil {
				return fail(err)
			}

			names, err := engine.ListNamespaces(cmd.Context(), args[0])
			if err != nil {
				return fail(err)
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}
