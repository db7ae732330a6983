//go:build windows

package process

import (
	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/wechat/process/windows"
)

func newPlatformLocator(platform model.Platform) (Locator, bool) {
	if platform != model.PlatformWindows {
		return nil, false
	}
	return windows.NewLocator(), true
}
