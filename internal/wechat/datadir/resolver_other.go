//go:build !windows && !darwin

package datadir

import "github.com/rkoshiba/wxforensic/internal/model"

func newPlatformResolver(model.Platform) (Resolver, bool) {
	return nil, false
}
