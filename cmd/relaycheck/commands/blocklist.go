package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var blocklistCmd = &cobra.Command{
	Use:   "blocklist",
	Short: "Manage blocklist enablement",
}

var blocklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured blocklists and their state",
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := buildComponents(cfg)
		if err != nil {
			return err
		}
		defer comp.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tZONE\tPROTOCOL\tENABLED\tDEFAULT")
		for _, list := range comp.registry.Lists() {
			protocol := "domain"
			if list.Numeric {
				protocol = "reverse-ip"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\n",
				list.Name, list.Zone, protocol,
				comp.registry.IsEnabled(cmd.Context(), list),
				list.DefaultEnabled)
		}
		return w.Flush()
	},
}

func setEnabledCmd(use, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := buildComponents(cfg)
			if err != nil {
				return err
			}
			defer comp.Close()

			list := comp.registry.Find(args[0])
			if list == nil {
				return fmt.Errorf("unknown blocklist: %s", args[0])
			}
			return comp.registry.SetEnabled(cmd.Context(), list, enabled)
		},
	}
}

var blocklistResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove all enablement overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := buildComponents(cfg)
		if err != nil {
			return err
		}
		defer comp.Close()

		return comp.registry.ResetDefaults(cmd.Context())
	},
}

func init() {
	blocklistCmd.AddCommand(blocklistListCmd)
	blocklistCmd.AddCommand(setEnabledCmd("enable", "Enable a blocklist", true))
	blocklistCmd.AddCommand(setEnabledCmd("disable", "Disable a blocklist", false))
	blocklistCmd.AddCommand(blocklistResetCmd)
	rootCmd.AddCommand(blocklistCmd)
}
