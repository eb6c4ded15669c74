package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/openclaw/skillforge/internal/sandbox"
)

// harnessCmd is the in-container entry point the sandbox runner
// executes. It is hidden: nothing outside a verification container
// should call it.
var harnessCmd = &cobra.Command{
	Use:    "harness <skill-dir>",
	Short:  "Run a skill verification inside the sandbox (internal)",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			// The harness must still emit its marker on a broken
			// config so the outer runner never sees a silent exit.
			os.Stderr.WriteString(err.Error() + "\n")
			os.Stdout.WriteString(sandbox.FailureMarker(sandbox.ReasonVerifyException) + "\n")
			os.Exit(1)
		}

		os.Exit(sandbox.RunHarness(args[0], cfg.Sandbox.Timeout, os.Stdout, os.Stderr))
	},
}

func init() {
	rootCmd.AddCommand(harnessCmd)
}
