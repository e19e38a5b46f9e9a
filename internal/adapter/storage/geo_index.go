package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

const metersPerMile = 1609.344

// GeoIndex implements geo.Index on PostGIS. Members are stored under a
// logical key and queried with ST_DWithin, ordered by distance.
type GeoIndex struct {
	db *pgxpool.Pool
}

// NewGeoIndex creates a new PostGIS-backed geo index.
func NewGeoIndex(db *pgxpool.Pool) *GeoIndex {
	return &GeoIndex{
		db: db,
	}
}

// Add registers a member at the given coordinates, replacing any previous
// location for the same member.
func (g *GeoIndex) Add(ctx context.Context, key string, lon, lat float64, member string) error {
	query := `
		INSERT INTO geo_index (index_key, member, location)
		VALUES ($1, $2, ST_MakePoint($3, $4)::geography)
		ON CONFLICT (index_key, member) DO UPDATE
		SET location = ST_MakePoint($3, $4)::geography
	`

	if _, err := g.db.Exec(ctx, query, key, member, lon, lat); err != nil {
		return fmt.Errorf("error adding geo index member: %w", err)
	}

	return nil
}

// Radius returns members within radiusMiles of the given point, ascending by
// distance.
func (g *GeoIndex) Radius(ctx context.Context, key string, lon, lat, radiusMiles float64) ([]string, error) {
	query := `
		SELECT member
		FROM geo_index
		WHERE index_key = $1
		AND ST_DWithin(location, ST_MakePoint($2, $3)::geography, $4)
		ORDER BY ST_Distance(location, ST_MakePoint($2, $3)::geography) ASC
	`

	rows, err := g.db.Query(ctx, query, key, lon, lat, radiusMiles*metersPerMile)
	if err != nil {
		return nil, fmt.Errorf("error querying geo index: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("error scanning geo index member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating geo index members: %w", err)
	}

	return members, nil
}

// Remove deletes a member from the index. Removing an absent member is a
// no-op, not an error.
func (g *GeoIndex) Remove(ctx context.Context, key string, member string) error {
	if _, err := g.db.Exec(ctx, `DELETE FROM geo_index WHERE index_key = $1 AND member = $2`, key, member); err != nil {
		return fmt.Errorf("error removing geo index member: %w", err)
	}

	return nil
}
