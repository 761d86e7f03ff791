package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/talkincode/adboard/config"
	"github.com/talkincode/adboard/internal/app"
)

var (
	// Global flags
	configFile string
	trackSQL   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "adboard",
	Short: "adboard - classified listings backend",
	Long: `adboard serves a JSON api over categories, locations, users and ads.

Commands:
  serve    - Run the http server
  migrate  - Create or update the database schema
  initdb   - Drop and recreate every table
  import   - Load csv fixtures into the database`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the yaml config file")
	rootCmd.PersistentFlags().BoolVar(&trackSQL, "track-sql", false, "Log every SQL statement")
}

// newApp loads the configuration and initializes the application
func newApp() (*app.Application, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if trackSQL {
		cfg.Database.Debug = true
	}
	a := app.NewApplication(cfg)
	if err := a.Init(); err != nil {
		return nil, err
	}
	return a, nil
}
