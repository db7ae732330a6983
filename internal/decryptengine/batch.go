package decryptengine

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rkoshiba/wxforensic/internal/model"
)

// minBatchFileSize skips files too small to be a real database, per
// spec.md §4.8's batch driver policy.
const minBatchFileSize = 1024

// dbExtensions is the closed set of recognized database file
// extensions the batch walk collects.
var dbExtensions = map[string]bool{".db": true}

// BatchResult aggregates one tree-walk's outcome.
type BatchResult struct {
	Success []Result
	Failed  map[string]error
}

// DecryptTree walks inputDir, decrypting every recognized database file
// under a semaphore of size threads (cpu count if <= 0). Each output
// path mirrors the input's relative structure with its basename
// prefixed "decrypted_". One file's failure is logged and does not stop
// the run, per spec.md §4.8.
func (e *Engine) DecryptTree(ctx context.Context, inputDir, outputDir string, secret model.MasterSecret, threads int) (BatchResult, error) {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	paths, err := collectFiles(inputDir)
	if err != nil {
		return BatchResult{}, err
	}

	batchID := uuid.NewString()

	absPaths := make([]string, len(paths))
	for i, rel := range paths {
		absPaths[i] = filepath.Join(inputDir, rel)
	}
	for _, r := range e.cache.BatchPrecompute(secret, absPaths) {
		if r.Err != nil {
			log.Debug().Err(r.Err).Str("batch_id", batchID).Str("file", r.Path).Msg("batch precompute skipped file")
		}
	}
	result := BatchResult{Failed: make(map[string]error)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, threads)

	for _, rel := range paths {
		rel := rel
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			inPath := filepath.Join(inputDir, rel)
			outPath := filepath.Join(outputDir, filepath.Dir(rel), "decrypted_"+filepath.Base(rel))
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				mu.Lock()
				result.Failed[inPath] = err
				mu.Unlock()
				return
			}

			profile := ProfileForSize(fileSize(inPath))
			r, err := e.DecryptFile(ctx, inPath, outPath, secret, profile, nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Err(err).Str("batch_id", batchID).Str("file", inPath).Msg("decrypt failed, continuing batch")
				result.Failed[inPath] = err
				return
			}
			result.Success = append(result.Success, r)
		}()
	}
	wg.Wait()

	log.Info().Str("batch_id", batchID).Int("success", len(result.Success)).Int("failed", len(result.Failed)).Msg("batch decrypt complete")
	return result, nil
}

func collectFiles(root string) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !dbExtensions[filepath.Ext(path)] {
			return nil
		}
		if info.Size() < minBatchFileSize {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	return out, err
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
