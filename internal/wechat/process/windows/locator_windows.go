// Package windows implements the Windows process locator, grounded in
// the teacher's internal/wechat/process/windows detector: enumerate via
// gopsutil, filter by a closed executable-name set, read version info
// via the bundled appver package, and derive data directory/account
// name from the process's open file handles as a secondary signal
// (the primary signal is internal/wechat/datadir's registry/ini
// resolver; this one is cheap to get for free while we already have the
// process object open, and costs nothing to keep as a cross-check).
package windows

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/oshandle"
	"github.com/rkoshiba/wxforensic/pkg/appver"
	"github.com/rkoshiba/wxforensic/pkg/util"
)

const (
	v3ProcessName = "WeChat"
	v4ProcessName = "Weixin"
	v3DBFile      = `Msg\Misc.db`
	v4DBFile      = `db_storage\session\session.db`
)

// Locator implements process.Locator for Windows.
type Locator struct{}

// NewLocator returns a new Windows Locator.
func NewLocator() *Locator { return &Locator{} }

// FindProcesses enumerates processes and returns a snapshot for each
// one matching the closed executable-name set.
func (l *Locator) FindProcesses() ([]*model.ProcessRecord, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	var out []*model.ProcessRecord
	for _, p := range procs {
		name, err := p.Name()
		name = strings.TrimSuffix(name, ".exe")
		if err != nil || (name != v3ProcessName && name != v4ProcessName) {
			continue
		}

		if name == v4ProcessName {
			cmdline, err := p.Cmdline()
			if err != nil {
				log.Warn().Err(err).Int32("pid", p.Pid).Msg("read cmdline failed, skipping")
				continue
			}
			// The v4 main process runs with no extra flags; helper
			// processes sharing the executable name carry "--" flags.
			if strings.Contains(cmdline, "--") {
				continue
			}
		}

		rec, err := l.recordFor(p, name)
		if err != nil {
			log.Warn().Err(err).Int32("pid", p.Pid).Msg("failed to read process info, skipping")
			continue
		}
		out = append(out, rec)
	}

	return out, nil
}

func (l *Locator) recordFor(p *process.Process, exeName string) (*model.ProcessRecord, error) {
	rec := &model.ProcessRecord{
		PID:      uint32(p.Pid),
		ExeName:  exeName,
		Status:   model.StatusOffline,
		Platform: model.PlatformWindows,
	}

	if ppid, err := p.Ppid(); err == nil {
		rec.ParentPID = uint32(ppid)
	}

	exePath, err := p.Exe()
	if err != nil {
		return nil, err
	}
	rec.ExePath = exePath

	info, err := appver.New(exePath)
	if err != nil {
		return nil, err
	}
	rec.Version = info.FullVersion

	if h, err := oshandle.Open(rec.PID, oshandle.RightsQuery); err == nil {
		rec.Is64Bit, _ = util.Is64Bit(h.Raw())
		h.Close()
	}

	if err := populateDataDirFromOpenFiles(p, rec); err != nil {
		log.Debug().Err(err).Int32("pid", p.Pid).Msg("open-files cross-check unavailable")
	}

	return rec, nil
}

// populateDataDirFromOpenFiles derives DataDir/AccountName/Status from
// one of the process's known-open database handles, matching the
// teacher's detector_windows.go initializeProcessInfo exactly.
func populateDataDirFromOpenFiles(p *process.Process, rec *model.ProcessRecord) error {
	files, err := p.OpenFiles()
	if err != nil {
		return err
	}

	isV4 := rec.ExeName == v4ProcessName
	dbPath := v3DBFile
	if isV4 {
		dbPath = v4DBFile
	}

	for _, f := range files {
		if !strings.HasSuffix(f.Path, dbPath) {
			continue
		}
		filePath := strings.TrimPrefix(f.Path, `\\?\`)
		parts := strings.Split(filePath, string(filepath.Separator))
		if len(parts) < 4 {
			continue
		}

		rec.Status = model.StatusOnline
		if isV4 {
			rec.DataDir = strings.Join(parts[:len(parts)-3], string(filepath.Separator))
			rec.AccountName = parts[len(parts)-4]
		} else {
			rec.DataDir = strings.Join(parts[:len(parts)-2], string(filepath.Separator))
			rec.AccountName = parts[len(parts)-3]
		}
		return nil
	}
	return nil
}
