// Package wxforensic implements the CLI surface: one file per
// subcommand plus a shared root, grounded in the teacher's cmd/chatlog
// layout.
package wxforensic

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	cobra.MousetrapHelpText = ""

	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable verbose logging")
	rootCmd.PersistentPreRun = initLog
}

// Execute runs the root command, logging (not panicking on) a failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Err(err).Msg("command execution failed")
	}
}

var rootCmd = &cobra.Command{
	Use:   "wxforensic",
	Short: "Offline forensic export tool for an encrypted local chat database",
	Long: `wxforensic locates a running chat application's process, recovers its
master encryption key from process memory, and decrypts its local
SQLite-compatible database files for offline forensic analysis.`,
	Example: `wxforensic process
wxforensic key --pid 1234
wxforensic decrypt --input msg.db --output msg.decrypted.db --key <hex>`,
	Args: cobra.MinimumNArgs(0),
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}
