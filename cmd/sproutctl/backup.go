package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"learnsprout/internal/service"
)

var (
	backupOutput  string
	backupReplace bool
	backupYes     bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or import the database as JSON",
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every table to a JSON file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output := backupOutput
		if output == "" {
			output = fmt.Sprintf("learnsprout_backup_%s.json", time.Now().Format("20060102_150405"))
		}
		if dir := filepath.Dir(output); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		if err := service.NewBackupService(e.db, e.log).Export(output); err != nil {
			return err
		}
		info, err := os.Stat(output)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported to %s (%.2f MB)\n", output, float64(info.Size())/1024/1024)
		return nil
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a JSON backup",
	Long: `Import a backup produced by "backup export". Rows are added to the
existing data unless --replace is given, which deletes every backed up
table first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		if _, err := os.Stat(input); err != nil {
			return fmt.Errorf("input file: %w", err)
		}
		if backupReplace && !backupYes && !confirm(cmd, "This deletes all existing data. Type 'yes' to confirm: ") {
			fmt.Fprintln(cmd.OutOrStdout(), "import cancelled")
			return nil
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		if err := service.NewBackupService(e.db, e.log).Import(input, backupReplace); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "import complete")
		return nil
	},
}

func init() {
	backupExportCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "output file (default: learnsprout_backup_<timestamp>.json)")
	backupImportCmd.Flags().BoolVar(&backupReplace, "replace", false, "delete existing data before importing")
	backupImportCmd.Flags().BoolVarP(&backupYes, "yes", "y", false, "skip the --replace confirmation")
	backupCmd.AddCommand(backupExportCmd, backupImportCmd)
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}
