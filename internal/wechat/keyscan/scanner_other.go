//go:build !windows

package keyscan

import (
	"context"

	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/oshandle"
	"github.com/rkoshiba/wxforensic/internal/werrors"
)

// Validator mirrors the windows build's interface so callers compile on
// every platform; the memory scanner itself is spec.md's Windows-only
// core (§1 "offline forensic/export tool for a Windows chat
// application"), so non-Windows targets report PlatformUnsupported
// rather than attempting a ReadProcessMemory-equivalent syscall this
// repo does not implement.
type Validator interface {
	Validate(candidate model.MasterSecret) bool
}

// Options mirrors the windows build's Options.
type Options struct {
	WorkerCount int
}

// Scanner mirrors the windows build's Scanner on platforms with no
// memory-scan implementation.
type Scanner struct {
	Validator Validator
	Stats     model.Stats
}

// New returns a Scanner stub.
func New(v Validator) *Scanner { return &Scanner{Validator: v} }

// statsSource is implemented by validators that track their own
// attempt/success/failure counts; mirrors the windows build's interface.
type statsSource interface {
	Stats() model.Stats
}

// Scan always reports the platform as unsupported. Still collects
// Stats from the Validator, if it tracks any, for interface consistency
// with the windows build.
func (s *Scanner) Scan(context.Context, *oshandle.Handle, Options) (model.MasterSecret, error) {
	if src, ok := s.Validator.(statsSource); ok {
		s.Stats = src.Stats()
	}
	return model.MasterSecret{}, werrors.PlatformUnsupported("non-windows", 0)
}

// ScanPID mirrors the windows build's ScanPID, always unsupported.
func (s *Scanner) ScanPID(context.Context, uint32, Options) (model.MasterSecret, error) {
	return model.MasterSecret{}, werrors.PlatformUnsupported("non-windows", 0)
}
