// Package model holds the plain data types shared across the scanner,
// validator, crypto and decryption-engine packages. None of these types
// carry behavior beyond small invariant helpers (zeroization, range
// checks) — the operations that act on them live in their own packages.
package model

import "crypto/subtle"

// Platform identifies the host OS a Process/DataDir strategy targets.
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformDarwin  Platform = "darwin"
)

// Status is the liveness of a detected process.
type Status string

const (
	StatusInit    Status = ""
	StatusOffline Status = "offline"
	StatusOnline  Status = "online"
)

// ProcessRecord is an immutable snapshot of one candidate process, taken
// at scan time. IsMain is derived once by the locator: true iff this
// record's ParentPID is not the PID of any candidate in the same scan.
type ProcessRecord struct {
	PID         uint32
	ParentPID   uint32
	ExeName     string
	ExePath     string
	Version     string // dotted quad, e.g. "3.9.12.43"
	Is64Bit     bool
	IsMain      bool
	Platform    Platform
	Status      Status
	DataDir     string
	AccountName string
}

// MemoryRegion is a transient description of one committed region in a
// target process's address space, as returned by the region-query
// primitive. Only regions passing Scannable are read and scanned.
type MemoryRegion struct {
	Base    uintptr
	Size    uintptr
	State   uint32
	Protect uint32
	Type    uint32
}

const minScannableRegionSize = 1 << 20 // 1 MiB, spec.md §3

// MEM_COMMIT / MEM_PRIVATE / PAGE_READWRITE-equivalent constants, kept
// here (not in golang.org/x/sys/windows) so non-Windows builds and tests
// can construct and check MemoryRegion without the windows package.
const (
	MemCommit       = 0x1000
	MemPrivate      = 0x20000
	PageReadWrite   = 0x04
	pageWriteCopy   = 0x08
	pageExecuteRW   = 0x40
	pageExecuteWC   = 0x80
	writableProtect = PageReadWrite | pageWriteCopy | pageExecuteRW | pageExecuteWC
)

// Scannable reports whether a region meets spec.md §3's gate: committed,
// private, read-write, at least 1 MiB.
func (r MemoryRegion) Scannable() bool {
	return r.State == MemCommit &&
		r.Type == MemPrivate &&
		r.Protect&writableProtect != 0 &&
		r.Size >= minScannableRegionSize
}

// PointerRange bounds valid user-space pointer values by architecture,
// per spec.md §3's CandidatePointer invariant.
type PointerRange struct {
	Min, Max uintptr
}

var (
	PointerRange64 = PointerRange{Min: 0x10000, Max: 0x7FFF_FFFF_FFFF}
	PointerRange32 = PointerRange{Min: 0x10000, Max: 0x7FFF_FFFF}
)

// InRange reports whether ptr falls strictly inside (Min, Max).
func (r PointerRange) InRange(ptr uintptr) bool {
	return ptr > r.Min && ptr < r.Max
}

// CandidatePointer is a (region_offset, pointer_value) pair derived from
// a sentinel hit, before it has been dereferenced and read.
type CandidatePointer struct {
	RegionOffset int
	Pointer      uintptr
}

const (
	// MasterSecretSize is the length of the master secret, spec.md §3.
	MasterSecretSize = 32
	// SaltSize is the length of a database file's salt prefix.
	SaltSize = 16
	// DerivedKeySize is the length of each of enc_key and mac_key.
	DerivedKeySize = 32
)

// MasterSecret is the 32-byte value extracted from the target process.
// It is sensitive: call Zero as soon as every holder is done with it.
type MasterSecret [MasterSecretSize]byte

// Zero overwrites the secret in place.
func (m *MasterSecret) Zero() {
	for i := range m {
		m[i] = 0
	}
}

// Equal does a constant-time comparison, used only by the known-value
// validator mode (spec.md §4.5, diagnostic only).
func (m MasterSecret) Equal(other MasterSecret) bool {
	return subtle.ConstantTimeCompare(m[:], other[:]) == 1
}

// Salt is a database file's 16-byte prefix.
type Salt [SaltSize]byte

// DerivedKeys is the pair produced by PBKDF2 derivation: enc_key for
// AES-CBC, mac_key for HMAC. Both are sensitive.
type DerivedKeys struct {
	EncKey [DerivedKeySize]byte
	MacKey [DerivedKeySize]byte
}

// Zero overwrites both keys in place.
func (d *DerivedKeys) Zero() {
	for i := range d.EncKey {
		d.EncKey[i] = 0
	}
	for i := range d.MacKey {
		d.MacKey[i] = 0
	}
}

// PageConfig parameterizes the page format variant, per spec.md §3/§9
// ("polymorphism over format variants ... via a PageConfig value").
// Exactly one variant (4096/SHA-512/256000) is registered today; a
// future variant is a second PageConfig value, not a type hierarchy.
type PageConfig struct {
	Name         string
	PageSize     int
	Reserve      int
	IVSize       int
	HMACSize     int
	IterCount    int
	SaltSize     int
	SQLiteHeader string
}

// PageTask is one unit of pipeline work: a page read from disk, not yet
// decrypted.
type PageTask struct {
	PageNum int64
	Offset  int64
	Data    []byte
}

// ProcessedPage is a PageTask's result: either ready-to-write bytes, or
// an error that the ordered writer turns into a zero placeholder.
type ProcessedPage struct {
	PageNum int64
	Data    []byte
	Err     error
}

// CacheKey uniquely (probabilistically) identifies a (master_secret,
// salt) pair for the PBKDF2 cache, per spec.md §3.
type CacheKey struct {
	KeyHash  [32]byte
	SaltHash [32]byte
}

// Stats holds the monotonic counters spec.md §3 calls for: cache
// hits/misses, PBKDF2 runs, validator attempts/successes/failures. A
// snapshot value; the owning cache/validator tracks the live counters
// with atomic.Int64 fields and fills this in on request.
type Stats struct {
	CacheHits         int64
	CacheMisses       int64
	PBKDF2Runs        int64
	ValidatorAttempts int64
	ValidatorSuccess  int64
	ValidatorFailure  int64
}
