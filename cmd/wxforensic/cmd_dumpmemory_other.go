//go:build !windows

package wxforensic

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(dumpmemoryCmd)
}

var dumpmemoryCmd = &cobra.Command{
	Use:   "dump-memory",
	Short: "Dump a target process's scannable memory regions (diagnostic, Windows-only)",
	Run: func(cmd *cobra.Command, args []string) {
		log.Error().Msg("dump-memory requires Windows (ReadProcessMemory is not available on this platform)")
	},
}
