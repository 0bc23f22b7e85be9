package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"frizerie/m/internal/schemainspect"
)

func newRootCmd() *cobra.Command {
	var dbPath, table string

	cmd := &cobra.Command{
		Use:   "checktable",
		Short: "Print the column layout of a table in the local SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return schemainspect.Report(cmd.Context(), cmd.OutOrStdout(), dbPath, table)
		},
		SilenceUsage: true,
	}

	defaultDB := os.Getenv("CHECKTABLE_DB")
	if defaultDB == "" {
		defaultDB = "sql_app.db"
	}
	cmd.Flags().StringVar(&dbPath, "db", defaultDB, "path to the SQLite database file")
	cmd.Flags().StringVar(&table, "table", "analytics_events", "table to describe")
	return cmd
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
