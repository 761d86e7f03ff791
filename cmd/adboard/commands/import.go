package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fixturesDir string

// importCmd loads category.csv, location.csv, user.csv and ad.csv
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load csv fixtures into the database",
	Long: `Load category.csv, location.csv, user.csv and ad.csv from a directory.
Rows keep their ids and are upserted; missing files are skipped.

Examples:
  adboard import --dir ./datasets
  adboard -c adboard.yml import --dir ./datasets`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Release()

		report, err := a.ImportFixtures(cmd.Context(), fixturesDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d categories, %d locations, %d users, %d ads\n",
			report.Categories, report.Locations, report.Users, report.Ads)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&fixturesDir, "dir", "./datasets", "Directory holding the csv files")
	rootCmd.AddCommand(importCmd)
}
