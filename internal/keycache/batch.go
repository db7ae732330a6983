package keycache

import (
	"io"
	"os"
	"sync"

	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/werrors"
)

// PrecomputeResult reports, per input path, whether its salt could be
// read and a derivation performed.
type PrecomputeResult struct {
	Path string
	Err  error
}

// BatchPrecompute implements spec.md §4.7's batch pre-compute: read the
// salt of each file in parallel, collapse to the set of unique
// CacheKeys, then run PBKDF2 in parallel for every cache-miss key. This
// amortizes derivation when many files share a salt, and is a no-op for
// paths whose key is already cached.
func (c *Cache) BatchPrecompute(secret model.MasterSecret, paths []string) []PrecomputeResult {
	results := make([]PrecomputeResult, len(paths))

	var wg sync.WaitGroup
	salts := make([]model.Salt, len(paths))
	wg.Add(len(paths))
	for i, p := range paths {
		go func(i int, p string) {
			defer wg.Done()
			salt, err := readSalt(p)
			if err != nil {
				results[i] = PrecomputeResult{Path: p, Err: err}
				return
			}
			salts[i] = salt
			results[i] = PrecomputeResult{Path: p}
		}(i, p)
	}
	wg.Wait()

	seen := make(map[model.Salt]bool)
	var unique []model.Salt
	for i, r := range results {
		if r.Err != nil {
			continue
		}
		if !seen[salts[i]] {
			seen[salts[i]] = true
			unique = append(unique, salts[i])
		}
	}

	var computeWG sync.WaitGroup
	computeWG.Add(len(unique))
	for _, salt := range unique {
		go func(salt model.Salt) {
			defer computeWG.Done()
			c.GetOrCompute(secret, salt)
		}(salt)
	}
	computeWG.Wait()

	return results
}

func readSalt(path string) (model.Salt, error) {
	var s model.Salt
	f, err := os.Open(path)
	if err != nil {
		return s, werrors.OpenFileFailed(path, err)
	}
	defer f.Close()

	buf := make([]byte, model.SaltSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return s, werrors.ReadFileFailed(path, err)
	}
	copy(s[:], buf)
	return s, nil
}
