package pass

import (
	"github.com/virtual-id-api/internal/domain"
	"github.com/virtual-id-api/internal/pkg/device"
)

// Platform is the wallet a client device can open.
type Platform string

const (
	PlatformNone   Platform = ""
	PlatformApple  Platform = "apple"
	PlatformGoogle Platform = "google"
)

// ChooseWalletLink picks the wallet URL matching the client's user agent.
func ChooseWalletLink(userAgent string, rec *domain.PassRecord) (Platform, string) {
	if rec == nil {
		return PlatformNone, ""
	}
	switch device.Detect(userAgent) {
	case device.FamilyIOS:
		if rec.AppleWalletURL != "" {
			return PlatformApple, rec.AppleWalletURL
		}
	case device.FamilyAndroid:
		if rec.GoogleWalletURL != "" {
			return PlatformGoogle, rec.GoogleWalletURL
		}
	}
	return PlatformNone, ""
}
