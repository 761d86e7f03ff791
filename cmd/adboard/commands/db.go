package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// migrateCmd creates missing tables and columns
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Release()
		if err := a.MigrateDB(true); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

// initdbCmd drops every table and creates the schema from scratch
var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Drop and recreate every table",
	Long: `Drop every adboard table, including the user/location links, and
create the schema again. All data is lost.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Release()
		if err := a.InitDb(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "database initialized")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, initdbCmd)
}
