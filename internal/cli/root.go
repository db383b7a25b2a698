// Package cli contains all commands of volunteer-console
package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lborres/volunteer/config"
	"github.com/lborres/volunteer/pkg/logging"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *logrus.Logger
	version = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "volunteer-console",
	Short: "Session-aware console for the volunteer platform API",
	Long: `volunteer-console keeps one authenticated session against the volunteer
platform backend and serves the role dashboards on top of it.

Example usage:
  volunteer-console login --email ada@example.org   # Log in and persist the token
  volunteer-console whoami                          # Show the resolved session
  volunteer-console profile                         # Check profile completeness
  volunteer-console serve                           # Serve the web console
  volunteer-console logout                          # Log out everywhere`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .volunteer-console.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger = logging.New(level, cfg.Logging.Format)

	logger.WithFields(logrus.Fields{
		"base_url": cfg.API.BaseURL,
		"driver":   cfg.TokenStore.Driver,
	}).Debug("configuration loaded")

	return nil
}
