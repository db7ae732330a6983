// Package app wires the process locator, data-directory resolver, key
// scanner and decryption engine into the small set of operations the
// CLI subcommands call, replacing the teacher's TUI-bound
// internal/wechat.Manager with a one-shot orchestration surface.
package app

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/rkoshiba/wxforensic/internal/decryptengine"
	"github.com/rkoshiba/wxforensic/internal/keycache"
	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/pagecrypto"
	"github.com/rkoshiba/wxforensic/internal/wechat/datadir"
	"github.com/rkoshiba/wxforensic/internal/wechat/dbfile"
	"github.com/rkoshiba/wxforensic/internal/wechat/keyscan"
	"github.com/rkoshiba/wxforensic/internal/wechat/process"
	"github.com/rkoshiba/wxforensic/internal/wechat/validator"
	"github.com/rkoshiba/wxforensic/internal/werrors"
)

// Manager is the CLI's single entry point into the domain packages.
type Manager struct {
	platform model.Platform
	locator  process.Locator
	resolver datadir.Resolver
	cache    *keycache.Cache
	engine   *decryptengine.Engine
}

// New builds a Manager for the running host's platform.
func New() *Manager {
	platform := currentPlatform()
	cache := keycache.New(pagecrypto.V4, keycache.DefaultMaxEntries)
	return &Manager{
		platform: platform,
		locator:  process.NewLocator(platform),
		resolver: datadir.NewResolver(platform),
		cache:    cache,
		engine:   decryptengine.New(pagecrypto.V4, cache),
	}
}

func currentPlatform() model.Platform {
	switch runtime.GOOS {
	case "windows":
		return model.PlatformWindows
	case "darwin":
		return model.PlatformDarwin
	default:
		return model.Platform(runtime.GOOS)
	}
}

// FindProcesses returns every candidate chat-application process found
// on this host, data directories filled in where resolvable.
func (m *Manager) FindProcesses() ([]*model.ProcessRecord, error) {
	records, err := m.locator.FindProcesses()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, werrors.ErrTargetNotFound
	}

	for _, rec := range records {
		if rec.DataDir != "" {
			continue
		}
		if dir, found, err := m.resolver.Resolve(rec); err == nil && found {
			rec.DataDir = dir
		}
	}
	return records, nil
}

// FindProcess returns the single named or first-found process record,
// matching the teacher's GetAccount(name) convenience.
func (m *Manager) FindProcess(accountName string) (*model.ProcessRecord, error) {
	records, err := m.FindProcesses()
	if err != nil {
		return nil, err
	}
	if accountName == "" {
		return records[0], nil
	}
	for _, rec := range records {
		if rec.AccountName == accountName {
			return rec, nil
		}
	}
	return nil, werrors.ErrTargetNotFound
}

// ScanOptions configures ResolveKey.
type ScanOptions struct {
	// UseExpected switches the validator to ModeKnownValue, comparing
	// candidates against ExpectedKey instead of trial-decrypting against
	// the account's reference database. Gated behind the CLI's
	// --debug-expected-key flag; never set from untrusted input.
	ExpectedKey model.MasterSecret
	UseExpected bool
}

// ResolveKey opens rec's process and scans its memory for the master
// secret, validating each candidate either by trial-decrypting the
// account's reference database or, in diagnostic mode, by direct
// comparison against a known value.
func (m *Manager) ResolveKey(ctx context.Context, rec *model.ProcessRecord, opts ScanOptions) (model.MasterSecret, error) {
	if rec.DataDir == "" {
		return model.MasterSecret{}, fmt.Errorf("process %d: no resolved data directory", rec.PID)
	}

	var v *validator.Validator
	if opts.UseExpected {
		v = validator.NewKnownValue(opts.ExpectedKey)
	} else {
		var err error
		v, err = validator.NewTrialDecrypt(pagecrypto.V4, m.cache, rec.Platform, rec.DataDir)
		if err != nil {
			return model.MasterSecret{}, err
		}
	}

	scanner := keyscan.New(v)
	return scanner.ScanPID(ctx, rec.PID, keyscan.Options{})
}

// ValidateKey checks secret against inputPath's own first page without
// writing any output, for the decrypt subcommand's --validate-only mode.
func (m *Manager) ValidateKey(inputPath string, secret model.MasterSecret) (bool, error) {
	cfg := pagecrypto.V4
	file, err := dbfile.OpenFirstPage(inputPath, int(cfg.PageSize))
	if err != nil {
		return false, err
	}
	salt := cfg.Salt(file.FirstPage)
	keys := m.cache.GetOrCompute(secret, salt)
	return cfg.VerifyPage(file.FirstPage, keys, 0), nil
}

// DecryptFile decrypts a single database file.
func (m *Manager) DecryptFile(ctx context.Context, inputPath, outputPath string, secret model.MasterSecret, progress decryptengine.ProgressFunc) (decryptengine.Result, error) {
	profile := decryptengine.ProfileForSize(sizeOf(inputPath))
	return m.engine.DecryptFile(ctx, inputPath, outputPath, secret, profile, progress)
}

// DecryptTree decrypts every recognized database file under inputDir.
func (m *Manager) DecryptTree(ctx context.Context, inputDir, outputDir string, secret model.MasterSecret, threads int) (decryptengine.BatchResult, error) {
	return m.engine.DecryptTree(ctx, inputDir, outputDir, secret, threads)
}

// Watch runs DecryptTree once and then keeps decrypting newly written
// or modified database files under inputDir until ctx is canceled.
func (m *Manager) Watch(ctx context.Context, inputDir, outputDir string, secret model.MasterSecret, threads int) error {
	return m.engine.Watch(ctx, inputDir, outputDir, secret, threads)
}

func sizeOf(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
