package wxforensic

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rkoshiba/wxforensic/internal/app"
	"github.com/rkoshiba/wxforensic/internal/model"
)

func init() {
	rootCmd.AddCommand(decryptCmd)
	decryptCmd.Flags().StringVarP(&decryptInput, "input", "i", "", "input database file or directory (optional — auto-detected from target process if omitted)")
	decryptCmd.Flags().StringVarP(&decryptOutput, "output", "o", "", "output file or directory (required)")
	decryptCmd.Flags().StringVarP(&decryptKey, "key", "k", "", "hex-encoded master key (optional; auto-extracted from process memory if omitted)")
	decryptCmd.Flags().IntVarP(&decryptThreads, "threads", "t", 0, "worker threads for directory decryption (0 = cpu count)")
	decryptCmd.Flags().BoolVarP(&decryptWatch, "watch", "", false, "keep running, decrypting new/changed files under --input (directory mode only)")
	decryptCmd.Flags().BoolVar(&decryptValidateOnly, "validate-only", false, "verify the key against --input without writing any output")
	decryptCmd.Flags().IntVarP(&decryptPID, "pid", "p", 0, "target process id for auto-detect/auto-extract (0 = first match)")
	decryptCmd.Flags().StringVar(&decryptAccount, "account", "", "target account name for auto-detect/auto-extract (overrides --pid)")
	decryptCmd.MarkFlagRequired("output")
}

var (
	decryptInput        string
	decryptOutput       string
	decryptKey          string
	decryptThreads      int
	decryptWatch        bool
	decryptValidateOnly bool
	decryptPID          int
	decryptAccount      string
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt a database file or an entire data directory",
	Run: func(cmd *cobra.Command, args []string) {
		m := app.New()
		ctx := context.Background()

		var rec *model.ProcessRecord
		if decryptInput == "" || decryptKey == "" {
			found, err := findTarget(m, decryptPID, decryptAccount)
			if err != nil {
				log.Err(err).Msg("failed to locate target process for auto-detect")
				return
			}
			rec = found
		}

		if decryptInput == "" {
			if rec.DataDir == "" {
				log.Error().Msg("could not auto-detect --input: process has no resolved data directory")
				return
			}
			decryptInput = rec.DataDir
			log.Info().Str("input", decryptInput).Msg("auto-detected --input from target process")
		}

		var secret model.MasterSecret
		if decryptKey == "" {
			extracted, err := m.ResolveKey(ctx, rec, app.ScanOptions{})
			if err != nil {
				log.Err(err).Msg("failed to auto-extract --key")
				return
			}
			secret = extracted
			log.Info().Msg("auto-extracted --key from process memory")
		} else {
			decoded, err := decodeMasterSecret(decryptKey)
			if err != nil {
				log.Err(err).Msg("invalid --key")
				return
			}
			secret = decoded
		}

		info, err := os.Stat(decryptInput)
		if err != nil {
			log.Err(err).Msg("failed to stat --input")
			return
		}

		if decryptValidateOnly {
			if info.IsDir() {
				log.Error().Msg("--validate-only requires a single file, not a directory")
				return
			}
			ok, err := m.ValidateKey(decryptInput, secret)
			if err != nil {
				log.Err(err).Msg("validation failed")
				return
			}
			if ok {
				fmt.Println("key is valid for this file")
			} else {
				fmt.Println("key is NOT valid for this file")
			}
			return
		}

		if info.IsDir() && decryptWatch {
			log.Info().Str("dir", decryptInput).Msg("watching for new or changed database files, ctrl-c to stop")
			if err := m.Watch(ctx, decryptInput, decryptOutput, secret, decryptThreads); err != nil {
				log.Err(err).Msg("watch failed")
			}
			return
		}

		if info.IsDir() {
			result, err := m.DecryptTree(ctx, decryptInput, decryptOutput, secret, decryptThreads)
			if err != nil {
				log.Err(err).Msg("batch decrypt failed")
				return
			}
			fmt.Printf("decrypted %d file(s), %d failed\n", len(result.Success), len(result.Failed))
			for path, ferr := range result.Failed {
				log.Warn().Str("file", path).Err(ferr).Msg("file failed")
			}
			return
		}

		result, err := m.DecryptFile(ctx, decryptInput, decryptOutput, secret, func(written, total int64) {
			log.Info().Int64("pages_written", written).Int64("total_pages", total).Msg("decrypt progress")
		})
		if err != nil {
			log.Err(err).Msg("decrypt failed")
			return
		}
		fmt.Printf("decrypt success: %d/%d pages ok, %d failed\n", result.PagesOK, result.TotalPages, result.PagesFailed)
	},
}
