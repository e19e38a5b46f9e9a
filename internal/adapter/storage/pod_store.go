package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"wanna/internal/domain/intent"
	"wanna/internal/domain/pod"
)

// ErrPodNotFound is returned when a pod does not exist.
var ErrPodNotFound = errors.New("pod not found")

// PodStore implements pod.Store on PostgreSQL.
type PodStore struct {
	db *pgxpool.Pool
}

// NewPodStore creates a new pod store.
func NewPodStore(db *pgxpool.Pool) *PodStore {
	return &PodStore{
		db: db,
	}
}

// Insert persists a newly formed pod in a single statement.
func (s *PodStore) Insert(ctx context.Context, p pod.Pod) error {
	query := `
		INSERT INTO pods (
			id, intent_ids, user_ids,
			centroid,
			activity, category, energy_level, social_preference,
			time_sensitivity, keywords,
			location_name, status, created_at, expires_at, arrived_user_ids
		) VALUES (
			$1, $2, $3,
			ST_MakePoint($4, $5)::geography,
			$6, $7, $8, $9,
			$10, $11,
			$12, $13, $14, $15, $16
		)
	`

	_, err := s.db.Exec(
		ctx,
		query,
		p.ID,
		p.IntentIDs,
		p.UserIDs,
		p.Centroid.Longitude,
		p.Centroid.Latitude,
		p.SharedIntent.Activity,
		string(p.SharedIntent.Category),
		string(p.SharedIntent.EnergyLevel),
		p.SharedIntent.SocialPreference,
		p.SharedIntent.TimeSensitivity,
		p.SharedIntent.Keywords,
		p.LocationName,
		string(p.Status),
		p.CreatedAt,
		p.ExpiresAt,
		p.ArrivedUserIDs,
	)

	if err != nil {
		return fmt.Errorf("error inserting pod: %w", err)
	}

	return nil
}

// Get returns a pod by id.
func (s *PodStore) Get(ctx context.Context, id string) (*pod.Pod, error) {
	query := `
		SELECT
			id, intent_ids, user_ids,
			ST_Y(centroid::geometry) as lat, ST_X(centroid::geometry) as lng,
			activity, category, energy_level, social_preference,
			time_sensitivity, keywords,
			location_name, status, created_at, expires_at, arrived_user_ids
		FROM pods
		WHERE id = $1
	`

	var p pod.Pod
	var category, energyLevel, status string
	var locationName *string

	err := s.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.IntentIDs,
		&p.UserIDs,
		&p.Centroid.Latitude,
		&p.Centroid.Longitude,
		&p.SharedIntent.Activity,
		&category,
		&energyLevel,
		&p.SharedIntent.SocialPreference,
		&p.SharedIntent.TimeSensitivity,
		&p.SharedIntent.Keywords,
		&locationName,
		&status,
		&p.CreatedAt,
		&p.ExpiresAt,
		&p.ArrivedUserIDs,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPodNotFound
		}
		return nil, fmt.Errorf("error querying pod: %w", err)
	}

	if locationName != nil {
		p.LocationName = *locationName
	}

	p.SharedIntent.Category = intent.Category(category)
	p.SharedIntent.EnergyLevel = intent.EnergyLevel(energyLevel)
	p.Status = pod.Status(status)

	return &p, nil
}

// MarkArrived records an arrival confirmation for a member user.
func (s *PodStore) MarkArrived(ctx context.Context, podID, userID string) error {
	query := `
		UPDATE pods
		SET arrived_user_ids = array_append(arrived_user_ids, $2)
		WHERE id = $1
		AND $2 = ANY(user_ids)
		AND NOT ($2 = ANY(arrived_user_ids))
	`

	_, err := s.db.Exec(ctx, query, podID, userID)
	if err != nil {
		return fmt.Errorf("error marking arrival: %w", err)
	}

	return nil
}
