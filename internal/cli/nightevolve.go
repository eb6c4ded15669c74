package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openclaw/skillforge/internal/generator"
	"github.com/openclaw/skillforge/internal/pipeline"
	"github.com/openclaw/skillforge/internal/registry"
	"github.com/openclaw/skillforge/internal/sandbox"
	"github.com/openclaw/skillforge/internal/scanner"
)

var nightEvolveCmd = &cobra.Command{
	Use:   "night-evolve",
	Short: "Generate and validate skills from the nightly queue",
	Long: `Process every pending queue item: generate a candidate with the
configured provider, validate the manifest, run the static policy scan,
verify the candidate in the isolation sandbox, and record survivors in
the registry as staging versions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		applyStringFlag(cmd, "queue", &cfg.Paths.Queue)
		applyStringFlag(cmd, "staging", &cfg.Paths.Staging)
		applyStringFlag(cmd, "registry", &cfg.Paths.Registry)
		applyStringFlag(cmd, "provider", &cfg.Pipeline.Provider)
		applyStringFlag(cmd, "audit-log", &cfg.Paths.AuditLog)
		if cmd.Flags().Changed("skip-sandbox") {
			cfg.Pipeline.SkipSandbox, _ = cmd.Flags().GetBool("skip-sandbox")
		}

		provider, err := generator.Get(cfg.Pipeline.Provider)
		if err != nil {
			return err
		}

		audit := registry.NewAuditLogger(cfg.Paths.AuditLog)
		reg := registry.New(cfg.Paths.Registry, audit)

		security := sandbox.DefaultSecurityOptions()
		security.MemoryLimit = cfg.Sandbox.MemoryLimit
		security.CPULimit = cfg.Sandbox.CPULimit
		security.PidsLimit = cfg.Sandbox.PidsLimit
		security.TmpfsSize = cfg.Sandbox.TmpfsSize

		coordinator := &pipeline.Coordinator{
			Provider:      provider,
			Scanner:       scanner.New(),
			Runner:        sandbox.NewRunner(cfg.Sandbox.Image, cfg.Sandbox.Timeout, sandbox.WithSecurityOptions(security)),
			Registry:      reg,
			StagingDir:    cfg.Paths.Staging,
			MaxConcurrent: cfg.Pipeline.MaxConcurrent,
			SkipSandbox:   cfg.Pipeline.SkipSandbox,
		}

		summary, err := coordinator.NightEvolve(cmd.Context(), cfg.Paths.Queue)
		if err != nil {
			return err
		}

		fmt.Println("Night evolve completed:")
		fmt.Printf("  Processed: %d\n", summary.Processed)
		fmt.Printf("  Succeeded: %d\n", summary.Succeeded)
		fmt.Printf("  Failed:    %d\n", summary.Failed)
		fmt.Printf("  Skipped:   %d\n", summary.Skipped)

		if summary.Failed > 0 {
			return fmt.Errorf("%d candidate(s) failed validation", summary.Failed)
		}
		return nil
	},
}

func init() {
	nightEvolveCmd.Flags().String("queue", "", "path to the nightly queue JSON file")
	nightEvolveCmd.Flags().String("staging", "", "path to the staging skills directory")
	nightEvolveCmd.Flags().String("registry", "", "path to the registry JSON file")
	nightEvolveCmd.Flags().String("provider", "", "skill generation provider")
	nightEvolveCmd.Flags().String("audit-log", "", "path to the audit log file")
	nightEvolveCmd.Flags().Bool("skip-sandbox", false, "skip sandbox verification entirely")

	rootCmd.AddCommand(nightEvolveCmd)
}
