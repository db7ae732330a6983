//go:build windows

package wxforensic

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rkoshiba/wxforensic/internal/app"
	"github.com/rkoshiba/wxforensic/internal/oshandle"
	"github.com/rkoshiba/wxforensic/internal/wechat/memwalk"
)

func init() {
	rootCmd.AddCommand(dumpmemoryCmd)
	dumpmemoryCmd.Flags().IntVarP(&dumpPID, "pid", "p", 0, "target process id (0 = first match)")
	dumpmemoryCmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "output file (default: wxforensic_dump_<pid>_<timestamp>.bin.zst)")
}

var (
	dumpPID    int
	dumpOutput string
)

// dumpmemoryCmd captures every scannable region of a target process's
// memory, zstd-compressed, for offline inspection when the key scanner
// fails to find a candidate and a human needs to look at the raw bytes.
var dumpmemoryCmd = &cobra.Command{
	Use:   "dump-memory",
	Short: "Dump a target process's scannable memory regions (diagnostic)",
	Run: func(cmd *cobra.Command, args []string) {
		m := app.New()
		rec, err := findTarget(m, dumpPID, "")
		if err != nil {
			log.Err(err).Msg("failed to locate target process")
			return
		}

		out := dumpOutput
		if out == "" {
			out = fmt.Sprintf("wxforensic_dump_%d_%s.bin.zst", rec.PID, time.Now().Format("20060102150405"))
		}

		h, err := oshandle.Open(rec.PID, oshandle.RightsQueryAndRead)
		if err != nil {
			log.Err(err).Msg("failed to open process")
			return
		}
		defer h.Close()

		f, err := os.Create(out)
		if err != nil {
			log.Err(err).Msg("failed to create output file")
			return
		}
		defer f.Close()

		enc, err := zstd.NewWriter(f)
		if err != nil {
			log.Err(err).Msg("failed to start zstd encoder")
			return
		}
		defer enc.Close()

		var regions, bytesWritten int
		err = memwalk.Walk(context.Background(), h.Raw(), func(base uintptr, data []byte) bool {
			regions++
			bytesWritten += len(data)
			var header bytes.Buffer
			fmt.Fprintf(&header, "REGION base=0x%x size=%d\n", base, len(data))
			enc.Write(header.Bytes())
			enc.Write(data)
			return true
		})
		if err != nil {
			log.Err(err).Msg("memory walk failed")
			return
		}

		log.Info().Int("regions", regions).Int("bytes", bytesWritten).Str("output", out).Msg("memory dump complete")
	},
}
