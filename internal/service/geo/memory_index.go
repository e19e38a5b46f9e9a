package geo

import (
	"context"
	"sort"
	"sync"

	"wanna/internal/domain/geo"
)

// MemoryIndex is an in-process implementation of geo.Index. It backs the
// engine in local mode and in tests; production deployments use the
// PostGIS-backed adapter.
type MemoryIndex struct {
	mu      sync.RWMutex
	members map[string]map[string]geo.Point // key -> member -> location
}

// NewMemoryIndex creates an empty in-memory geo index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		members: make(map[string]map[string]geo.Point),
	}
}

// Add registers a member at the given coordinates, replacing any previous
// location for the same member.
func (idx *MemoryIndex) Add(ctx context.Context, key string, lon, lat float64, member string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.members[key] == nil {
		idx.members[key] = make(map[string]geo.Point)
	}
	idx.members[key][member] = geo.Point{Latitude: lat, Longitude: lon}

	return nil
}

// Radius returns members within radiusMiles of the given point, ascending by
// distance.
func (idx *MemoryIndex) Radius(ctx context.Context, key string, lon, lat, radiusMiles float64) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	origin := geo.Point{Latitude: lat, Longitude: lon}

	type hit struct {
		member   string
		distance float64
	}

	var hits []hit
	for member, loc := range idx.members[key] {
		if d := DistanceMiles(origin, loc); d <= radiusMiles {
			hits = append(hits, hit{member: member, distance: d})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].member < hits[j].member
	})

	result := make([]string, 0, len(hits))
	for _, h := range hits {
		result = append(result, h.member)
	}

	return result, nil
}

// Remove deletes a member from the index. Removing an absent member is a
// no-op.
func (idx *MemoryIndex) Remove(ctx context.Context, key string, member string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.members[key], member)

	return nil
}
