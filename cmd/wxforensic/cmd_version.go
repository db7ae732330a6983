package wxforensic

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rkoshiba/wxforensic/pkg/version"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&versionM, "module", "m", false, "show full module build info")
}

var versionM bool

var versionCmd = &cobra.Command{
	Use:   "version [-m]",
	Short: "Show the version of wxforensic",
	Run: func(cmd *cobra.Command, args []string) {
		if versionM {
			fmt.Println(version.GetMore(true))
		} else {
			fmt.Printf("wxforensic %s", version.GetMore(false))
		}
	},
}
