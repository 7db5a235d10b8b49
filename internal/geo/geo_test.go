package geo

import (
	"math"
	"testing"

	"github.com/Sanjarbek17/MedAI/internal/models"
)

func TestDistanceZero(t *testing.T) {
	d := Distance(&models.Location{}, &models.Location{})
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestDistanceKnownPoints(t *testing.T) {
	// one hundredth of a degree of longitude at the equator is ~1.11 km
	a := &models.Location{Lat: 0, Lng: 0}
	b := &models.Location{Lat: 0, Lng: 0.01}
	d := Distance(a, b)
	if math.Abs(d-1.1119) > 0.01 {
		t.Fatalf("expected ~1.11 km, got %f", d)
	}
}

func TestDistanceLenientFallback(t *testing.T) {
	good := &models.Location{Lat: 10, Lng: 10}
	cases := []*models.Location{
		nil,
		{Lat: math.NaN(), Lng: 0},
		{Lat: 0, Lng: math.Inf(1)},
	}
	for _, bad := range cases {
		if d := Distance(good, bad); d != 0 {
			t.Fatalf("expected fallback 0 for %v, got %f", bad, d)
		}
		if d := Distance(bad, good); d != 0 {
			t.Fatalf("expected fallback 0 for %v, got %f", bad, d)
		}
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := &models.Location{Lat: 41.3, Lng: 69.2}
	b := &models.Location{Lat: 41.0, Lng: 71.6}
	if d1, d2 := Distance(a, b), Distance(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Fatalf("distance not symmetric: %f vs %f", d1, d2)
	}
}
