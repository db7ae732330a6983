//go:build darwin

package process

import (
	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/wechat/process/darwin"
)

func newPlatformLocator(platform model.Platform) (Locator, bool) {
	if platform != model.PlatformDarwin {
		return nil, false
	}
	return darwin.NewLocator(), true
}
