package dispatch

import (
	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/platform"
)

// Routing is purely a function of orientation. Landscape items go to the
// desktop platform set, portrait items to the mobile set. Changing a set
// here is the whole routing change.
var (
	desktopPlatforms = []string{
		platform.PlatformMicroblogMain,
		platform.PlatformMicroblogAlt,
		platform.PlatformProNet,
	}

	mobilePlatforms = []string{
		platform.PlatformMicroblogMain,
		platform.PlatformMicroblogAlt,
		platform.PlatformPhotoShare,
		platform.PlatformCommunityPage,
		platform.PlatformPinwall,
	}
)

// TargetPlatforms returns the platform ids an item routes to.
func TargetPlatforms(orientation domain.Orientation) []string {
	if orientation == domain.OrientationPortrait {
		return mobilePlatforms
	}
	return desktopPlatforms
}
