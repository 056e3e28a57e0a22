package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"learnsprout/internal/catalog"
	"learnsprout/internal/service"
)

var seedFile string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()
		fmt.Fprintln(cmd.OutOrStdout(), "migrations up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the activity catalog",
	Long: `Upsert skills, materials and activities from a YAML catalog. Without
--file the embedded default catalog is used. Rerunning updates rows in place.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCatalog(seedFile)
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid catalog: %w", err)
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		svc, done, err := e.services(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		report, err := svc.Catalog.Seed(c)
		if err != nil {
			return err
		}
		printSeedReport(cmd, report)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "catalog YAML file (default: embedded catalog)")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return catalog.Load(f)
}

func printSeedReport(cmd *cobra.Command, report service.SeedReport) {
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d skills, %d materials, %d activities\n",
		report.Skills, report.Materials, report.Activities)
}
