// Package datadir implements the data-directory resolver of spec.md
// §4.3: propose candidate base paths from a registry value and from
// per-user .ini files, then accept the first candidate whose
// "xwechat_files/wxid_*" subdirectory exists AND whose path string is
// found inside the target process's private memory.
package datadir

import "github.com/rkoshiba/wxforensic/internal/model"

// Resolver resolves the on-disk data directory for one candidate
// process. Implementations never return an error for "nothing found" —
// per spec.md §4.3, that is a non-fatal empty result, not a failure.
type Resolver interface {
	Resolve(proc *model.ProcessRecord) (dir string, found bool, err error)
}

// NewResolver returns the Resolver for the given platform. Platform
// dispatch is implemented per-GOOS in resolver_windows.go,
// resolver_darwin.go and resolver_other.go, so this package never
// references a type that only exists on a different build target.
func NewResolver(platform model.Platform) Resolver {
	if r, ok := newPlatformResolver(platform); ok {
		return r
	}
	return nullResolver{}
}

type nullResolver struct{}

func (nullResolver) Resolve(*model.ProcessRecord) (string, bool, error) { return "", false, nil }
