package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/celerix-dev/celerix-settings/pkg/sdk"
	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

const (
	defaultAddr = "localhost:7001"
	envVaultKey = "CELERIX_VAULT_KEY"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli holds the flags shared by every subcommand and the connection they use.
type cli struct {
	addr    string
	scope   string
	command string

	client *sdk.Client
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	addr := os.Getenv(sdk.EnvAddr)
	if addr == "" {
		addr = defaultAddr
	}

	root := &cobra.Command{
		Use:   "celerix-settings",
		Short: "Inspect and edit plugin settings held by a celerix-settingsd daemon",
		Long: `celerix-settings talks to a running celerix-settingsd over its line protocol.

Environment Variables:
  CELERIX_SETTINGS_ADDR   Address of the daemon (default: localhost:7001)
  CELERIX_DISABLE_TLS     Set to true to connect without TLS
  CELERIX_VAULT_KEY       Master key used by "set --secret" and "get --secret"`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client, err := sdk.Connect(c.addr)
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", c.addr, err)
			}
			c.client = client
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.client == nil {
				return nil
			}
			return c.client.Close()
		},
	}

	root.PersistentFlags().StringVar(&c.addr, "addr", addr, "daemon address")
	root.PersistentFlags().StringVarP(&c.scope, "scope", "s", "local", "settings scope: local or shared")
	root.PersistentFlags().StringVarP(&c.command, "command", "c", "", "command name; empty selects plugin-level settings")

	root.AddCommand(
		c.pingCmd(),
		c.pluginsCmd(),
		c.commandsCmd(),
		c.getCmd(),
		c.setCmd(),
		c.delCmd(),
		c.dumpCmd(),
		c.modifiedCmd(),
		c.writeCmd(),
		c.migrateCmd(),
	)
	return root
}

func (c *cli) parsedScope() (settings.Scope, error) {
	return settings.ParseScope(c.scope)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

// vaultKey returns the master key from the flag or CELERIX_VAULT_KEY.
func vaultKey(flag string) ([]byte, error) {
	if flag == "" {
		flag = os.Getenv(envVaultKey)
	}
	if flag == "" {
		return nil, fmt.Errorf("no vault key: pass --key or set %s", envVaultKey)
	}
	return []byte(flag), nil
}
