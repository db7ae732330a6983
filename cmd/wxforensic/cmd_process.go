package wxforensic

import (
	"fmt"
	"text/tabwriter"

	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rkoshiba/wxforensic/internal/app"
)

func init() {
	rootCmd.AddCommand(processCmd)
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "List candidate chat application processes",
	Run: func(cmd *cobra.Command, args []string) {
		m := app.New()
		records, err := m.FindProcesses()
		if err != nil {
			log.Err(err).Msg("failed to find processes")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PID\tPARENT\tMAIN\tVERSION\tSTATUS\tACCOUNT\tDATA DIR")
		for _, r := range records {
			fmt.Fprintf(w, "%d\t%d\t%v\t%s\t%s\t%s\t%s\n",
				r.PID, r.ParentPID, r.IsMain, r.Version, r.Status, r.AccountName, r.DataDir)
		}
		w.Flush()
	},
}
