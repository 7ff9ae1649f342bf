// Package commands implements the CLI commands for grabsome.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/grabsome/grabsome/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "grabsome",
	Short: "Adaptive web content fetcher and extractor",
	Long: `Grabsome retrieves web pages and extracts normalized content.

Static pages are fetched over plain HTTP; pages that need JavaScript are
rendered in a headless browser. In auto mode the engine starts with the
cheap static path and escalates to the browser when the result looks like
an unrendered shell.

Examples:
  # Fetch a page and print markdown
  grabsome fetch https://example.com/article

  # Force browser rendering and wait for a selector
  grabsome fetch https://example.com/spa --mode dynamic --wait-selector "#content"

  # Emit JSON with structured blocks
  grabsome fetch https://example.com --format json`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("log-json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.grabsome.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log-json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".grabsome")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("GRABSOME")
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
