package wxforensic

import (
	"fmt"
	"path"
	"runtime"

	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Debug toggles verbose logging for logrus, the logger used by
// internal/wechat/keyscan: debug level plus caller reporting, as the
// teacher's log.go initLog did. The zerolog global logger used by the
// orchestration layer is not changed by this flag.
var Debug bool

func initLog(cmd *cobra.Command, args []string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			_, filename := path.Split(f.File)
			return "", fmt.Sprintf("%s:%d", filename, f.Line)
		},
	})

	if Debug {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetReportCaller(true)
	}
}
