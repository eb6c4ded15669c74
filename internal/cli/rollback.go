package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openclaw/skillforge/internal/registry"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll a skill back to a previous version",
	Long: `Point the production pointer of a skill back at a previous version.
The currently active version is disabled with the rollback recorded as
its reason; no version is ever removed from the registry.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		applyStringFlag(cmd, "registry", &cfg.Paths.Registry)
		applyStringFlag(cmd, "audit-log", &cfg.Paths.AuditLog)

		skillName, _ := cmd.Flags().GetString("skill")
		target, _ := cmd.Flags().GetString("to")

		audit := registry.NewAuditLogger(cfg.Paths.AuditLog)
		reg := registry.New(cfg.Paths.Registry, audit)

		if err := reg.Rollback(skillName, target); err != nil {
			return err
		}

		fmt.Printf("Successfully rolled back %s to version %s\n", skillName, target)
		return nil
	},
}

func init() {
	rollbackCmd.Flags().String("skill", "", "name of the skill to roll back")
	rollbackCmd.Flags().String("to", "", "target version to roll back to")
	rollbackCmd.Flags().String("registry", "", "path to the registry JSON file")
	rollbackCmd.Flags().String("audit-log", "", "path to the audit log file")
	_ = rollbackCmd.MarkFlagRequired("skill")
	_ = rollbackCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(rollbackCmd)
}
