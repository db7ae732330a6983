// Package oshandle wraps a raw Windows process handle in a scoped value
// that guarantees release on every exit path, matching spec.md §4.1.
// Process handles are opened only through Open; callers that pass a raw
// windows.Handle to a syscall (the key scanner, memory walker,
// data-directory resolver and bitness check) take it from Raw.
package oshandle

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Handle owns an open process handle. The zero value is not usable;
// construct with Open.
type Handle struct {
	raw    windows.Handle
	pid    uint32
	closed bool
}

// Rights mirrors the access mask requested from OpenProcess, kept as a
// named type so callers state intent (query-only vs. query+read) rather
// than passing a bare uint32 around.
type Rights uint32

const (
	// RightsQuery is enough to read version info and WOW64 status.
	RightsQuery Rights = Rights(windows.PROCESS_QUERY_INFORMATION)
	// RightsQueryAndRead additionally permits ReadProcessMemory.
	RightsQueryAndRead Rights = Rights(windows.PROCESS_QUERY_INFORMATION | windows.PROCESS_VM_READ)
)

// Open acquires a process handle for pid with the given rights. The
// returned Handle rejects the invalid sentinel at construction: a zero
// or error return from OpenProcess never produces a live Handle.
func Open(pid uint32, rights Rights) (*Handle, error) {
	raw, err := windows.OpenProcess(uint32(rights), false, pid)
	if err != nil {
		return nil, fmt.Errorf("open process %d: %w", pid, err)
	}
	if raw == 0 || raw == windows.InvalidHandle {
		return nil, fmt.Errorf("open process %d: invalid handle", pid)
	}
	return &Handle{raw: raw, pid: pid}, nil
}

// Raw returns the underlying windows.Handle for use by syscalls that
// have no oshandle-level wrapper (VirtualQueryEx, ReadProcessMemory).
func (h *Handle) Raw() windows.Handle { return h.raw }

// PID returns the process ID this handle was opened against.
func (h *Handle) PID() uint32 { return h.pid }

// Close releases the handle. Safe to call more than once.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return windows.CloseHandle(h.raw)
}
