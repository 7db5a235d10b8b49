package geo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sanjarbek17/MedAI/internal/models"
)

// FleetIndex mirrors last-known ambulance positions into a Redis GEO set.
// It is an operational view only; dispatch matching runs over the in-memory
// session state, never over Redis.
type FleetIndex struct {
	client *redis.Client
	key    string
}

func NewFleetIndex(addr, password, key string) *FleetIndex {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &FleetIndex{client: c, key: key}
}

func (f *FleetIndex) Upsert(ctx context.Context, driverID string, loc models.Location) error {
	if _, err := f.client.GeoAdd(ctx, f.key, &redis.GeoLocation{
		Longitude: loc.Lng,
		Latitude:  loc.Lat,
		Name:      driverID,
	}).Result(); err != nil {
		return err
	}
	return f.client.HSet(ctx, metaKey(driverID), map[string]interface{}{
		"updated": time.Now().UTC().Format(time.RFC3339),
	}).Err()
}

func (f *FleetIndex) Remove(ctx context.Context, driverID string) error {
	if err := f.client.ZRem(ctx, f.key, driverID).Err(); err != nil {
		return err
	}
	return f.client.Del(ctx, metaKey(driverID)).Err()
}

// FleetEntry is one driver position returned by Nearby.
type FleetEntry struct {
	DriverID   string          `json:"driver_id"`
	Location   models.Location `json:"location"`
	DistanceKm float64         `json:"distance_km"`
}

// Nearby returns up to limit mirrored positions within radiusKm, closest
// first.
func (f *FleetIndex) Nearby(ctx context.Context, loc models.Location, radiusKm float64, limit int) ([]FleetEntry, error) {
	res, err := f.client.GeoRadius(ctx, f.key, loc.Lng, loc.Lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Count:     limit,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]FleetEntry, 0, len(res))
	for _, g := range res {
		out = append(out, FleetEntry{
			DriverID:   g.Name,
			Location:   models.Location{Lat: g.Latitude, Lng: g.Longitude},
			DistanceKm: g.Dist,
		})
	}
	return out, nil
}

func (f *FleetIndex) Ping(ctx context.Context) error { return f.client.Ping(ctx).Err() }

func (f *FleetIndex) Close() error { return f.client.Close() }

func metaKey(id string) string { return "ambulance:meta:" + id }
