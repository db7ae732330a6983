// Package process implements the process locator of spec.md §4.2: find
// candidate application processes by executable name, tag the "main"
// one, and read enough metadata (version, bitness) that the rest of the
// pipeline never has to touch the OS process list again.
package process

import (
	"github.com/rkoshiba/wxforensic/internal/model"
)

// Locator finds candidate processes for one platform.
type Locator interface {
	// FindProcesses returns immutable snapshots of every process whose
	// executable name matches the platform's closed name set. A process
	// that cannot be opened or queried is skipped, not fatal.
	FindProcesses() ([]*model.ProcessRecord, error)
}

// platformLocator is implemented per-GOOS in locator_windows.go,
// locator_darwin.go and locator_other.go, so this package never imports
// a platform subpackage that cannot build on the current GOOS.
func platformLocator(platform model.Platform) (Locator, bool) {
	return newPlatformLocator(platform)
}

// NewLocator returns the Locator for the given platform. An unknown
// platform, or a platform this build target cannot host, returns a
// locator whose FindProcesses always succeeds with zero results,
// matching the teacher's fail-soft null-object pattern. The returned
// Locator applies TagMain before returning, so every caller gets
// fully-derived records without remembering the step.
func NewLocator(platform model.Platform) Locator {
	inner, ok := platformLocator(platform)
	if !ok {
		return nullLocator{}
	}
	return taggingLocator{inner}
}

type taggingLocator struct{ inner Locator }

func (t taggingLocator) FindProcesses() ([]*model.ProcessRecord, error) {
	records, err := t.inner.FindProcesses()
	if err != nil {
		return nil, err
	}
	TagMain(records)
	return records, nil
}

type nullLocator struct{}

func (nullLocator) FindProcesses() ([]*model.ProcessRecord, error) { return nil, nil }

// TagMain marks, in place, the record(s) whose own ParentPID is not
// present among the candidate PIDs as IsMain, per spec.md §3's
// derived-field rule ("no parent pid present in the filtered set"). Safe
// to call with any number of candidates, including zero.
func TagMain(records []*model.ProcessRecord) {
	for _, r := range records {
		r.IsMain = !hasParentInSet(r.ParentPID, records)
	}
}

func hasParentInSet(parentPID uint32, records []*model.ProcessRecord) bool {
	for _, r := range records {
		if r.PID == parentPID {
			return true
		}
	}
	return false
}
