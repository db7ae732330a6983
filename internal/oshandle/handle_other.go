//go:build !windows

package oshandle

// Handle is an opaque stub on non-Windows platforms. spec.md §1 scopes
// OpenProcess/ReadProcessMemory-based scanning to Windows; this type
// exists only so cross-platform signatures (e.g. keyscan.Scanner.Scan)
// compile on every GOOS.
type Handle struct{}

func (h *Handle) PID() uint32  { return 0 }
func (h *Handle) Close() error { return nil }
