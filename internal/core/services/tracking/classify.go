package tracking

import (
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/signatures"
)

// classifyTracker names the tracker ecosystem behind a sighting. Vendor
// signatures win; a device that raises the separation signal or keeps
// following the user without one is reported as a generic tracker.
func classifyTracker(sigs *signatures.Database, s domain.Sighting, separated bool, locations int, tracked time.Duration) domain.TrackerType {
	generic := false
	for _, m := range sigs.MatchBLE(s) {
		if m.TrackerType.Recognized() {
			return m.TrackerType
		}
		if m.TrackerType == domain.TrackerGeneric {
			generic = true
		}
	}
	if generic || separated {
		return domain.TrackerGeneric
	}
	if locations >= FollowingLocations && tracked > SeparationThreshold {
		return domain.TrackerGeneric
	}
	return domain.TrackerUnknown
}
