package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openclaw/skillforge/internal/registry"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show registry state for all skills",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		applyStringFlag(cmd, "registry", &cfg.Paths.Registry)

		reg := registry.New(cfg.Paths.Registry, nil)
		names, err := reg.List()
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("Registry is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SKILL\tPROD\tSTAGING\tVERSIONS")
		for _, name := range names {
			entry, err := reg.Entry(name)
			if err != nil {
				return err
			}
			prod := entry.CurrentProd
			if prod == "" {
				prod = "-"
			}
			staging := entry.CurrentStaging
			if staging == "" {
				staging = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", name, prod, staging, len(entry.Versions))
		}
		return w.Flush()
	},
}

func init() {
	statusCmd.Flags().String("registry", "", "path to the registry JSON file")
	rootCmd.AddCommand(statusCmd)
}
