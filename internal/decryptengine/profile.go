package decryptengine

import "runtime"

// Profile configures one file's read/decrypt/write pipeline concurrency,
// mirroring the original Rust implementation's ParallelDecryptConfig
// auto/small/large presets (original_source/core/src/wechat/decrypt/
// parallel_decrypt.rs), per spec.md §4.8 and §9's "auto-configured
// concurrency profiles" supplement.
type Profile struct {
	ConcurrentPages int
	BatchSize       int
	MaxMemoryMB     int
}

// AutoProfile scales to the host's CPU count, clamped to [4, 32].
func AutoProfile() Profile {
	n := clamp(runtime.NumCPU()*2, 4, 32)
	return Profile{ConcurrentPages: n, BatchSize: 64, MaxMemoryMB: 512}
}

// SmallFileProfile is tuned for files under a few MB, where spinning up
// many workers costs more than it saves.
func SmallFileProfile() Profile {
	return Profile{ConcurrentPages: 4, BatchSize: 16, MaxMemoryMB: 128}
}

// LargeFileProfile scales more aggressively for multi-hundred-MB files.
func LargeFileProfile() Profile {
	n := clamp(runtime.NumCPU()*4, 8, 64)
	return Profile{ConcurrentPages: n, BatchSize: 128, MaxMemoryMB: 1024}
}

// smallFileThreshold and largeFileThreshold bound ProfileForSize's
// choice of preset.
const (
	smallFileThreshold = 8 << 20   // 8 MiB
	largeFileThreshold = 256 << 20 // 256 MiB
)

// ProfileForSize picks a preset from a file's byte size.
func ProfileForSize(sizeBytes int64) Profile {
	switch {
	case sizeBytes < smallFileThreshold:
		return SmallFileProfile()
	case sizeBytes >= largeFileThreshold:
		return LargeFileProfile()
	default:
		return AutoProfile()
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
