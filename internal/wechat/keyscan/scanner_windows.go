// Package keyscan implements the memory key scanner of spec.md §4.4:
// pattern-find → pointer-validate → candidate-read → candidate-verify,
// run as one producer plus N workers sharing a first-wins stop
// protocol. Grounded directly in the teacher's
// internal/wechat/key/windows/v4_windows.go, generalized past a single
// hard-coded extractor into a reusable Scanner value.
package keyscan

import (
	"bytes"
	"context"
	"encoding/binary"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/oshandle"
	"github.com/rkoshiba/wxforensic/internal/wechat/memwalk"
	"github.com/rkoshiba/wxforensic/internal/werrors"
)

// Sentinel is the fixed 24-byte marker preceding a pointer to the
// master secret, per spec.md §4.4/GLOSSARY.
var Sentinel = []byte{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x20, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x2F, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

const (
	maxWorkers       = 16
	channelDepth     = 100
	checkpointWindow = 100 // workers check the stop flag at least this often
)

// Validator decides whether a 32-byte candidate is the master secret.
// Implemented by internal/wechat/validator. Must be safe for concurrent
// calls and cheap to abandon mid-call; the scanner never waits for a
// Validate call beyond its own context.
type Validator interface {
	Validate(candidate model.MasterSecret) bool
}

// Options configures one scan. Zero value selects the spec.md defaults.
type Options struct {
	WorkerCount int // 0 => max(2, cpu_count), capped at 16
}

// Scanner runs the pipeline against one already-open process handle.
type Scanner struct {
	Validator Validator
	Stats     model.Stats
}

// New returns a Scanner using the given Validator.
func New(v Validator) *Scanner {
	return &Scanner{Validator: v}
}

// ScanPID opens pid for query+read and runs Scan against it, so callers
// outside this package never need to hold a *oshandle.Handle themselves.
func (s *Scanner) ScanPID(ctx context.Context, pid uint32, opts Options) (model.MasterSecret, error) {
	h, err := oshandle.Open(pid, oshandle.RightsQueryAndRead)
	if err != nil {
		return model.MasterSecret{}, werrors.OpenProcessFailed(err)
	}
	defer h.Close()
	return s.Scan(ctx, h, opts)
}

// Scan runs one producer + N-worker pass over h's committed private
// memory and returns the first validated master secret. Returns
// werrors.ErrKeyNotFound if the scan completes with no success.
func (s *Scanner) Scan(ctx context.Context, h *oshandle.Handle, opts Options) (model.MasterSecret, error) {
	scanID := uuid.NewString()
	log := logrus.WithField("scan_id", scanID)

	workerCount := opts.WorkerCount
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if workerCount < 2 {
		workerCount = 2
	}
	if workerCount > maxWorkers {
		workerCount = maxWorkers
	}
	log.Debugf("starting %d workers", workerCount)

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	memoryCh := make(chan []byte, channelDepth)
	resultCh := make(chan model.MasterSecret, 1)
	var stopped atomic.Bool
	var successes atomic.Int64

	var workerWG sync.WaitGroup
	workerWG.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer workerWG.Done()
			s.worker(searchCtx, h.Raw(), &stopped, &successes, memoryCh, resultCh, log)
		}()
	}

	var producerWG sync.WaitGroup
	producerWG.Add(1)
	go func() {
		defer producerWG.Done()
		defer close(memoryCh)
		err := memwalk.Walk(searchCtx, h.Raw(), func(_ uintptr, data []byte) bool {
			if stopped.Load() {
				return false
			}
			select {
			case memoryCh <- data:
				return true
			case <-searchCtx.Done():
				return false
			}
		})
		if err != nil && searchCtx.Err() == nil {
			log.WithError(err).Debug("producer stopped early")
		}
	}()

	go func() {
		producerWG.Wait()
		workerWG.Wait()
		close(resultCh)
	}()

	defer s.collectStats()

	select {
	case <-ctx.Done():
		return model.MasterSecret{}, ctx.Err()
	case secret, ok := <-resultCh:
		if ok {
			return secret, nil
		}
	}
	return model.MasterSecret{}, werrors.ErrKeyNotFound
}

// statsSource is implemented by validators (internal/wechat/validator)
// that track their own attempt/success/failure counts. Declared here,
// not imported, so keyscan stays decoupled from the validator package.
type statsSource interface {
	Stats() model.Stats
}

// collectStats copies the Validator's own counters into Scanner.Stats
// once a scan completes, per spec.md §3's Stats data model. A Validator
// that doesn't track stats (e.g. a test double) leaves Scanner.Stats at
// its zero value.
func (s *Scanner) collectStats() {
	if src, ok := s.Validator.(statsSource); ok {
		s.Stats = src.Stats()
	}
}

func (s *Scanner) worker(
	ctx context.Context,
	handle windows.Handle,
	stopped *atomic.Bool,
	successes *atomic.Int64,
	memoryCh <-chan []byte,
	resultCh chan<- model.MasterSecret,
	log *logrus.Entry,
) {
	ptrSize := 8
	le := binary.LittleEndian.Uint64
	pointerRange := model.PointerRange64
	if runtime.GOARCH != "amd64" {
		ptrSize = 4
		le = func(b []byte) uint64 { return uint64(binary.LittleEndian.Uint32(b)) }
		pointerRange = model.PointerRange32
	}

	iterations := 0
	for {
		select {
		case <-ctx.Done():
			return
		case memory, ok := <-memoryCh:
			if !ok {
				return
			}

			index := len(memory)
			for {
				iterations++
				if iterations%checkpointWindow == 0 || stopped.Load() {
					select {
					case <-ctx.Done():
						return
					default:
					}
					if stopped.Load() {
						return
					}
				}

				index = bytes.LastIndex(memory[:index], Sentinel)
				if index == -1 || index-ptrSize < 0 {
					break
				}

				ptrValue := uintptr(le(memory[index-ptrSize : index]))
				index--
				if !pointerRange.InRange(ptrValue) {
					continue
				}

				candidate, ok := readCandidate(handle, ptrValue)
				if !ok {
					continue
				}
				if !s.Validator.Validate(candidate) {
					continue
				}

				if successes.Add(1) == 1 {
					stopped.Store(true)
					select {
					case resultCh <- candidate:
						log.Debug("master secret found")
					default:
					}
				}
				return
			}
		}
	}
}

func readCandidate(handle windows.Handle, addr uintptr) (model.MasterSecret, bool) {
	var secret model.MasterSecret
	if err := windows.ReadProcessMemory(handle, addr, &secret[0], uintptr(len(secret)), nil); err != nil {
		return secret, false
	}
	return secret, true
}
