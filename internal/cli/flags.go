package cli

import "github.com/spf13/cobra"

// applyStringFlag overrides a config value with a flag when the flag
// was set on the command line.
func applyStringFlag(cmd *cobra.Command, name string, target *string) {
	if cmd.Flags().Changed(name) {
		if v, err := cmd.Flags().GetString(name); err == nil {
			*target = v
		}
	}
}
