package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openclaw/skillforge/internal/evalgate"
	"github.com/openclaw/skillforge/internal/pipeline"
	"github.com/openclaw/skillforge/internal/registry"
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote staged skills to production through the evaluation gates",
	Long: `Run the replay, regression, and redteam gates against staged skill
versions. A version is promoted only when all three gates meet their
thresholds (replay and redteam 100%, regression at least 99%); anything
less rejects the candidate with full per-case detail retained.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		applyStringFlag(cmd, "staging", &cfg.Paths.Staging)
		applyStringFlag(cmd, "prod", &cfg.Paths.Prod)
		applyStringFlag(cmd, "registry", &cfg.Paths.Registry)
		applyStringFlag(cmd, "eval-dir", &cfg.Paths.EvalDir)
		applyStringFlag(cmd, "audit-log", &cfg.Paths.AuditLog)

		audit := registry.NewAuditLogger(cfg.Paths.AuditLog)
		promoter := &pipeline.Promoter{
			Registry:   registry.New(cfg.Paths.Registry, audit),
			Evaluator:  evalgate.New(cfg.Paths.EvalDir),
			StagingDir: cfg.Paths.Staging,
			ProdDir:    cfg.Paths.Prod,
		}

		skillName, _ := cmd.Flags().GetString("skill")
		if skillName != "" {
			if err := promoter.PromoteSkill(skillName); err != nil {
				return err
			}
			fmt.Printf("Successfully promoted %s\n", skillName)
			return nil
		}

		result, err := promoter.PromoteAll()
		if err != nil {
			return err
		}

		if len(result.Promoted) > 0 {
			fmt.Printf("Promoted: %s\n", strings.Join(result.Promoted, ", "))
		}
		if len(result.Failed) > 0 {
			fmt.Printf("Failed: %s\n", strings.Join(result.Failed, ", "))
		}
		if len(result.Skipped) > 0 {
			fmt.Printf("Skipped (no staging): %s\n", strings.Join(result.Skipped, ", "))
		}

		if len(result.Failed) > 0 {
			return fmt.Errorf("%d skill(s) failed promotion", len(result.Failed))
		}
		return nil
	},
}

func init() {
	promoteCmd.Flags().String("staging", "", "path to the staging skills directory")
	promoteCmd.Flags().String("prod", "", "path to the production skills directory")
	promoteCmd.Flags().String("registry", "", "path to the registry JSON file")
	promoteCmd.Flags().String("eval-dir", "", "path to the evaluation case directory")
	promoteCmd.Flags().String("skill", "", "promote a specific skill (default: all with a staging version)")
	promoteCmd.Flags().String("audit-log", "", "path to the audit log file")

	rootCmd.AddCommand(promoteCmd)
}
