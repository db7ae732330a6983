//go:build !windows && !darwin

package process

import "github.com/rkoshiba/wxforensic/internal/model"

func newPlatformLocator(model.Platform) (Locator, bool) {
	return nil, false
}
