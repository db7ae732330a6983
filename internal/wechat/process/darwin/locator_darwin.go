// Package darwin implements the process locator for macOS. The core
// engineering spec.md targets is Windows-only; this locator exists
// because the teacher repo is cross-platform and the process-locator
// interface costs nothing extra to keep generic. It uses lsof the way
// the teacher's detector does, since macOS exposes no ReadProcessMemory
// analogue and gopsutil's OpenFiles() is unreliable on darwin sandboxed
// apps.
package darwin

import (
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/werrors"
	"github.com/rkoshiba/wxforensic/pkg/appver"
)

const (
	processNameOfficial = "WeChat"
	processNameBeta     = "Weixin"
	v3DBFile            = "Message/msg_0.db"
	v4DBFile            = "db_storage/session/session.db"
)

// Locator implements process.Locator for macOS.
type Locator struct{}

// NewLocator returns a new macOS Locator.
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
		if err != nil || (name != processNameOfficial && name != processNameBeta) {
			continue
		}

		rec, err := l.recordFor(p)
		if err != nil {
			log.Warn().Err(err).Int32("pid", p.Pid).Msg("failed to read process info, skipping")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (l *Locator) recordFor(p *process.Process) (*model.ProcessRecord, error) {
	rec := &model.ProcessRecord{
		PID:      uint32(p.Pid),
		Status:   model.StatusOffline,
		Platform: model.PlatformDarwin,
		Is64Bit:  true, // no 32-bit macOS builds of the target app exist
	}

	if ppid, err := p.Ppid(); err == nil {
		rec.ParentPID = uint32(ppid)
	}

	exePath, err := p.Exe()
	if err != nil {
		return nil, err
	}
	rec.ExePath = exePath

	if info, err := appver.New(exePath); err == nil {
		rec.Version = info.FullVersion
	} else {
		log.Debug().Err(err).Msg("version read failed, defaulting")
		rec.Version = "3.0.0"
	}

	if err := populateDataDirFromOpenFiles(p, rec); err != nil {
		log.Debug().Err(err).Int32("pid", p.Pid).Msg("open-files cross-check unavailable")
	}
	return rec, nil
}

func populateDataDirFromOpenFiles(p *process.Process, rec *model.ProcessRecord) error {
	files, err := openFiles(int(p.Pid))
	if err != nil {
		return err
	}

	isV4 := strings.HasPrefix(rec.Version, "4")
	dbPath := v3DBFile
	if isV4 {
		dbPath = v4DBFile
	}

	for _, filePath := range files {
		if !strings.Contains(filePath, dbPath) {
			continue
		}
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

// openFiles shells out to lsof -F n, the only portable way to list a
// sandboxed app's open files on macOS without cgo.
func openFiles(pid int) ([]string, error) {
	cmd := exec.Command("lsof", "-p", strconv.Itoa(pid), "-F", "n")
	output, err := cmd.Output()
	if err != nil {
		return nil, werrors.Internal("lsof failed", err)
	}

	var files []string
	for _, line := range strings.Split(string(output), "\n") {
		if strings.HasPrefix(line, "n") {
			if p := line[1:]; p != "" {
				files = append(files, p)
			}
		}
	}
	return files, nil
}
