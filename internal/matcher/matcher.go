package matcher

import (
	"github.com/Sanjarbek17/MedAI/internal/geo"
	"github.com/Sanjarbek17/MedAI/internal/models"
)

// Match is the outcome of one nearest-driver selection.
type Match struct {
	Driver     models.Driver
	DistanceKm float64
}

// NearestAvailable scans a driver snapshot and picks the closest one with
// status available whose id is not excluded. Ties go to the smaller driver
// id, which keeps selection deterministic given the store's sorted
// snapshots. Pure function, no side effects.
func NearestAvailable(loc *models.Location, drivers []models.Driver, exclude map[string]struct{}) (Match, bool) {
	var best Match
	found := false
	for _, d := range drivers {
		if d.Status != models.DriverAvailable {
			continue
		}
		if _, skip := exclude[d.ID]; skip {
			continue
		}
		dist := geo.Distance(loc, d.Location)
		if !found || dist < best.DistanceKm {
			best = Match{Driver: d, DistanceKm: dist}
			found = true
		}
	}
	return best, found
}

// Exclude builds an exclusion set from driver ids, dropping empties.
func Exclude(ids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}
