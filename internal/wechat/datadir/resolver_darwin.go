package datadir

import (
	"os"
	"path/filepath"
	"strings"

	"howett.net/plist"

	"github.com/rkoshiba/wxforensic/internal/model"
)

// macOS has no registry; its analogue is a per-app preference plist
// under ~/Library/Preferences. We read it with howett.net/plist rather
// than hand-rolling a binary-plist parser.
const (
	prefsRelPath  = "Library/Preferences/com.tencent.xinWeChat.plist"
	lastPathKey   = "LastUsedDataPath"
	dataDirMarker = "xwechat_files"
	wxidPrefix    = "wxid_"
)

type darwinResolver struct{}

func newDarwinResolver() Resolver { return &darwinResolver{} }

// Resolve reads the preference plist for a last-known base path, then
// applies the same liveness gate as Windows (spec.md §4.3 step 3). The
// memory cross-check (step 4) has no equivalent on darwin in this
// repo — ReadProcessMemory has no portable darwin analogue without
// task_for_pid entitlements this tool does not request — so the darwin
// path trusts the plist value once its subdirectory exists.
func (r *darwinResolver) Resolve(proc *model.ProcessRecord) (string, bool, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, nil
	}

	f, err := os.Open(filepath.Join(home, prefsRelPath))
	if err != nil {
		return "", false, nil
	}
	defer f.Close()

	var prefs map[string]any
	if err := plist.NewDecoder(f).Decode(&prefs); err != nil {
		return "", false, nil
	}

	base, _ := prefs[lastPathKey].(string)
	if base == "" {
		return "", false, nil
	}

	marker := filepath.Join(base, dataDirMarker)
	entries, err := os.ReadDir(marker)
	if err != nil {
		return "", false, nil
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), wxidPrefix) {
			return filepath.Join(marker, e.Name()), true, nil
		}
	}
	return "", false, nil
}

func newPlatformResolver(platform model.Platform) (Resolver, bool) {
	if platform != model.PlatformDarwin {
		return nil, false
	}
	return newDarwinResolver(), true
}
