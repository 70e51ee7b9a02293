package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-settings/pkg/sdk"
	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

func (c *cli) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the daemon answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.client.Ping(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PONG")
			return nil
		},
	}
}

func (c *cli) pluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List hosted plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.client.Plugins()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
}

func (c *cli) commandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands <plugin>",
		Short: "List commands that have settings in the selected scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := c.parsedScope()
			if err != nil {
				return err
			}
			list, err := c.client.Commands(args[0], scope)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
}

func (c *cli) getCmd() *cobra.Command {
	var secret bool
	var key string
	cmd := &cobra.Command{
		Use:   "get <plugin> <key>",
		Short: "Show one entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := c.parsedScope()
			if err != nil {
				return err
			}
			if secret {
				masterKey, err := vaultKey(key)
				if err != nil {
					return err
				}
				plain, err := sdk.Scope(c.client, args[0], scope, c.command).Vault(masterKey).Get(args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), plain)
				return nil
			}
			e, err := c.client.Get(args[0], scope, c.command, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e)
		},
	}
	cmd.Flags().BoolVar(&secret, "secret", false, "decrypt the value with the vault key")
	cmd.Flags().StringVar(&key, "key", "", "vault master key (default $"+envVaultKey+")")
	return cmd
}

func (c *cli) setCmd() *cobra.Command {
	var asDefault, secret bool
	var key string
	cmd := &cobra.Command{
		Use:   "set <plugin> <key> <value>",
		Short: "Change the value or default of one entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := c.parsedScope()
			if err != nil {
				return err
			}
			h := sdk.Scope(c.client, args[0], scope, c.command)
			switch {
			case secret && asDefault:
				return fmt.Errorf("--secret and --default cannot be combined")
			case secret:
				var masterKey []byte
				if masterKey, err = vaultKey(key); err != nil {
					return err
				}
				err = h.Vault(masterKey).Set(args[1], args[2])
			case asDefault:
				err = h.SetDefault(args[1], args[2])
			default:
				err = h.Set(args[1], args[2])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	cmd.Flags().BoolVar(&asDefault, "default", false, "set the default instead of the value")
	cmd.Flags().BoolVar(&secret, "secret", false, "encrypt the value with the vault key before sending it")
	cmd.Flags().StringVar(&key, "key", "", "vault master key (default $"+envVaultKey+")")
	return cmd
}

func (c *cli) delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del <plugin> <key>",
		Short: "Delete one entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := c.parsedScope()
			if err != nil {
				return err
			}
			if err := c.client.Delete(args[0], scope, c.command, args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func (c *cli) dumpCmd() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "dump <plugin>",
		Short: "Show every entry of the selected dictionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := c.parsedScope()
			if err != nil {
				return err
			}
			entries, err := c.client.Dump(args[0], scope, c.command)
			if err != nil {
				return err
			}
			if asYAML {
				return printYAML(cmd.OutOrStdout(), entries)
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print YAML instead of JSON")
	return cmd
}

func (c *cli) modifiedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modified <plugin>",
		Short: "Report whether a plugin has values that differ from their defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modified, err := c.client.Modified(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), modified)
			return nil
		},
	}
}

func (c *cli) writeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write <plugin>",
		Short: "Persist both scopes of a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := c.client.Write(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("local settings of %s were not written", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <plugin> <from> <to>",
		Short: "Copy modified values of a plugin from one scope to the other",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := settings.ParseScope(args[1])
			if err != nil {
				return err
			}
			to, err := settings.ParseScope(args[2])
			if err != nil {
				return err
			}
			copied, err := c.client.Migrate(args[0], from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied %d entries\n", copied)
			return nil
		},
	}
}
