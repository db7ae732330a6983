package decryptengine

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/pkg/filemonitor"
)

// watchDebounce coalesces the burst of fsnotify events a single file
// write usually produces (WRITE then CHMOD, sometimes twice) into one
// decrypt pass per file.
const watchDebounce = 500 * time.Millisecond

// Watch runs DecryptTree once, then keeps watching inputDir for
// created/modified database files and decrypts each one as it settles,
// until ctx is canceled. This is additive to spec.md's one-shot batch
// driver — grounded in the teacher's pkg/filemonitor, not the original
// Rust implementation, which has no live-mode equivalent.
func (e *Engine) Watch(ctx context.Context, inputDir, outputDir string, secret model.MasterSecret, threads int) error {
	if _, err := e.DecryptTree(ctx, inputDir, outputDir, secret, threads); err != nil {
		return err
	}

	fm := filemonitor.NewFileMonitor()
	group, err := fm.CreateGroup("wxforensic-watch", inputDir, `\.db$`, nil)
	if err != nil {
		return err
	}

	var pendingMu sync.Mutex
	pending := make(map[string]*time.Timer)
	debounced := func(event fsnotify.Event) error {
		path := event.Name
		pendingMu.Lock()
		if t, ok := pending[path]; ok {
			t.Stop()
		}
		pending[path] = time.AfterFunc(watchDebounce, func() {
			pendingMu.Lock()
			delete(pending, path)
			pendingMu.Unlock()
			rel, err := filepath.Rel(inputDir, path)
			if err != nil {
				return
			}
			outPath := filepath.Join(outputDir, filepath.Dir(rel), "decrypted_"+filepath.Base(rel))
			profile := ProfileForSize(fileSize(path))
			if _, err := e.DecryptFile(ctx, path, outPath, secret, profile, nil); err != nil {
				log.Warn().Err(err).Str("file", path).Msg("watch decrypt failed")
			} else {
				log.Info().Str("file", path).Msg("watch decrypt complete")
			}
		})
		pendingMu.Unlock()
		return nil
	}
	group.AddCallback(debounced)

	if err := fm.Start(); err != nil {
		return err
	}
	defer fm.Stop()

	<-ctx.Done()
	return nil
}
