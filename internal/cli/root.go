// Package cli implements the skillforge command surface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openclaw/skillforge/internal/config"
	"github.com/openclaw/skillforge/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "skillforge",
	Short: "Skillforge - zero-trust lifecycle manager for generated skills",
	Long: `Skillforge validates, stages, promotes, and rolls back machine-generated
skills with no human in the loop. Every candidate passes a static policy
scan, an isolated sandbox verification, and three promotion gates before
it can reach production; every decision is reversible and audited.

Example:
  skillforge night-evolve --queue data/queue.json --staging skills_staging \
    --registry data/registry.json --provider mock`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .skillforge.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}
		viper.AddConfigPath(cwd)
		viper.SetConfigName(".skillforge")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SKILLFORGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; a missing file falls back to
		// defaults, anything else is a real problem.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
			os.Exit(1)
		}
	}
}

// loadConfig materializes the effective configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}
