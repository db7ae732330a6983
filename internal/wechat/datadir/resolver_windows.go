package datadir

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/oshandle"
	"github.com/rkoshiba/wxforensic/internal/wechat/memwalk"
	"github.com/rkoshiba/wxforensic/pkg/util"
)

const (
	registryKeyPath  = `Software\Tencent\xwechat`
	registryValue    = `InstallPath`
	iniConfigDirName = `xwechat\config`
	iniPattern       = `\.ini$`
	dataDirMarker    = "xwechat_files"
	wxidPrefix       = "wxid_"
	maxOccurrences   = 1
)

type windowsResolver struct{}

func newWindowsResolver() Resolver { return &windowsResolver{} }

// Resolve runs the strategy order from spec.md §4.3: registry value,
// then newest-first .ini candidates, each gated by liveness (does a
// wxid_* subdirectory exist) and cross-check (is the path string
// present in the process's private memory).
func (r *windowsResolver) Resolve(proc *model.ProcessRecord) (string, bool, error) {
	handle, err := oshandle.Open(proc.PID, oshandle.RightsQueryAndRead)
	if err != nil {
		return "", false, nil // access denied is non-fatal here, per spec.md §4.3
	}
	defer handle.Close()

	for _, base := range candidateBases() {
		dataDir, ok := concreteDataDir(base)
		if !ok {
			continue
		}
		verified, err := crossCheck(handle.Raw(), dataDir)
		if err != nil {
			return "", false, err // memory-search errors propagate
		}
		if verified {
			return dataDir, true, nil
		}
	}
	return "", false, nil
}

// candidateBases collects the registry value (if present) followed by
// .ini-file candidates ordered newest-mtime-first.
func candidateBases() []string {
	var bases []string

	if v, err := readRegistryBase(); err == nil && v != "" {
		bases = append(bases, v)
	}

	appData := os.Getenv("APPDATA")
	if appData == "" {
		return bases
	}
	iniDir := filepath.Join(appData, iniConfigDirName)
	files, err := util.FindFilesWithPatterns(iniDir, iniPattern, false)
	if err != nil {
		log.Debug().Err(err).Str("dir", iniDir).Msg("no ini config directory found")
		return bases
	}

	sort.Slice(files, func(i, j int) bool {
		fi, _ := os.Stat(files[i])
		fj, _ := os.Stat(files[j])
		if fi == nil || fj == nil {
			return false
		}
		return fi.ModTime().After(fj.ModTime())
	})

	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		if base := strings.TrimSpace(string(content)); base != "" {
			bases = append(bases, base)
		}
	}
	return bases
}

func readRegistryBase() (string, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, registryKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer k.Close()
	v, _, err := k.GetStringValue(registryValue)
	return v, err
}

// concreteDataDir checks that base/xwechat_files/wxid_* exists and
// returns the first matching subdirectory.
func concreteDataDir(base string) (string, bool) {
	marker := filepath.Join(base, dataDirMarker)
	entries, err := os.ReadDir(marker)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), wxidPrefix) {
			return filepath.Join(marker, e.Name()), true
		}
	}
	return "", false
}

// crossCheck searches the target's private memory for the candidate
// path's UTF-8 bytes, bounded to at most one occurrence per spec.md
// §4.3's cross-check gate.
func crossCheck(handle windows.Handle, dataDir string) (bool, error) {
	needle := []byte(dataDir)
	found := false
	occurrences := 0

	err := memwalk.Walk(context.Background(), handle, func(_ uintptr, data []byte) bool {
		idx := 0
		for {
			rel := bytes.Index(data[idx:], needle)
			if rel == -1 {
				break
			}
			occurrences++
			idx += rel + 1
			if occurrences >= maxOccurrences {
				found = true
				return false
			}
		}
		return true
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func newPlatformResolver(platform model.Platform) (Resolver, bool) {
	if platform != model.PlatformWindows {
		return nil, false
	}
	return newWindowsResolver(), true
}
