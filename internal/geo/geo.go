package geo

import (
	"math"

	"github.com/Sanjarbek17/MedAI/internal/models"
	"github.com/Sanjarbek17/MedAI/internal/observability"
)

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance between two points in
// kilometers. A nil location or a non-finite coordinate degrades to 0
// instead of failing: dispatch must keep moving on malformed input. The
// fallback is counted so it stays visible in metrics.
func Distance(a, b *models.Location) float64 {
	if !wellFormed(a) || !wellFormed(b) {
		observability.DistanceFallbacksTotal.Inc()
		return 0
	}
	return haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

func wellFormed(l *models.Location) bool {
	if l == nil {
		return false
	}
	for _, v := range []float64{l.Lat, l.Lng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
