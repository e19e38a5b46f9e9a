package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"wanna/internal/domain/intent"
)

// IntentStore implements intent.Store on PostgreSQL.
type IntentStore struct {
	db *pgxpool.Pool
}

// NewIntentStore creates a new intent store.
func NewIntentStore(db *pgxpool.Pool) *IntentStore {
	return &IntentStore{
		db: db,
	}
}

// Save inserts or updates an intent.
func (s *IntentStore) Save(ctx context.Context, in intent.Intent) error {
	query := `
		INSERT INTO intents (
			id, user_id, raw_text,
			activity, category, energy_level, social_preference,
			time_sensitivity, duration_minutes, keywords, confidence,
			embedding, location, location_accuracy, location_name,
			status, created_at, expires_at, matched_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, ST_MakePoint($13, $14)::geography, $15, $16,
			$17, $18, $19, $20
		)
		ON CONFLICT (id) DO UPDATE
		SET
			raw_text = $3,
			activity = $4,
			category = $5,
			energy_level = $6,
			social_preference = $7,
			time_sensitivity = $8,
			duration_minutes = $9,
			keywords = $10,
			confidence = $11,
			embedding = $12,
			location = ST_MakePoint($13, $14)::geography,
			location_accuracy = $15,
			location_name = $16,
			status = $17,
			expires_at = $19,
			matched_at = $20
	`

	_, err := s.db.Exec(
		ctx,
		query,
		in.ID,
		in.UserID,
		in.RawText,
		in.Structured.Activity,
		string(in.Structured.Category),
		string(in.Structured.EnergyLevel),
		in.Structured.SocialPreference,
		in.Structured.TimeSensitivity,
		in.Structured.DurationEstimateMinutes,
		in.Structured.Keywords,
		in.Structured.Confidence,
		in.Embedding,
		in.Location.Longitude,
		in.Location.Latitude,
		in.Location.AccuracyMeters,
		in.LocationName,
		string(in.Status),
		in.CreatedAt,
		in.ExpiresAt,
		in.MatchedAt,
	)

	if err != nil {
		return fmt.Errorf("error saving intent: %w", err)
	}

	return nil
}

// GetActive returns the intent with the given id, or intent.ErrNotFound when
// it does not exist, is not active, or has expired.
func (s *IntentStore) GetActive(ctx context.Context, id string) (*intent.Intent, error) {
	query := `
		SELECT
			id, user_id, raw_text,
			activity, category, energy_level, social_preference,
			time_sensitivity, duration_minutes, keywords, confidence,
			embedding,
			ST_Y(location::geometry) as lat, ST_X(location::geometry) as lng,
			location_accuracy, location_name,
			status, created_at, expires_at, matched_at
		FROM intents
		WHERE id = $1
	`

	in, err := s.scanIntent(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, intent.ErrNotFound
		}
		return nil, fmt.Errorf("error querying intent: %w", err)
	}

	if in.Status != intent.StatusActive || in.Expired(time.Now()) {
		return nil, intent.ErrNotFound
	}

	return in, nil
}

// ListActive returns up to limit active, unexpired intents created within
// maxAge, oldest first.
func (s *IntentStore) ListActive(ctx context.Context, maxAge time.Duration, limit int) ([]intent.Intent, error) {
	query := `
		SELECT
			id, user_id, raw_text,
			activity, category, energy_level, social_preference,
			time_sensitivity, duration_minutes, keywords, confidence,
			embedding,
			ST_Y(location::geometry) as lat, ST_X(location::geometry) as lng,
			location_accuracy, location_name,
			status, created_at, expires_at, matched_at
		FROM intents
		WHERE status = 'active'
		AND created_at >= $1
		AND expires_at > now()
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, time.Now().Add(-maxAge), limit)
	if err != nil {
		return nil, fmt.Errorf("error listing active intents: %w", err)
	}
	defer rows.Close()

	var intents []intent.Intent
	for rows.Next() {
		in, err := s.scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning intent: %w", err)
		}
		intents = append(intents, *in)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating intents: %w", err)
	}

	return intents, nil
}

// MarkMatched transitions the given intents to matched. Only rows still
// active transition; losing a race to another formation path is logged, not
// fatal.
func (s *IntentStore) MarkMatched(ctx context.Context, ids []string, podID string, matchedAt time.Time) error {
	query := `
		UPDATE intents
		SET status = 'matched', matched_at = $2, pod_id = $3
		WHERE id = ANY($1) AND status = 'active'
	`

	tag, err := s.db.Exec(ctx, query, ids, matchedAt, podID)
	if err != nil {
		return fmt.Errorf("error marking intents matched: %w", err)
	}

	if int(tag.RowsAffected()) < len(ids) {
		log.Printf("MarkMatched: %d of %d intents transitioned for pod %s", tag.RowsAffected(), len(ids), podID)
	}

	return nil
}

// UpdateStatus advances an intent to the given status.
func (s *IntentStore) UpdateStatus(ctx context.Context, id string, status intent.Status) error {
	tag, err := s.db.Exec(ctx, `UPDATE intents SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("error updating intent status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return intent.ErrNotFound
	}

	return nil
}

// scanIntent scans one intent row.
func (s *IntentStore) scanIntent(row pgx.Row) (*intent.Intent, error) {
	var in intent.Intent
	var category, energyLevel, status string
	var lat, lng *float64
	var locationName *string

	err := row.Scan(
		&in.ID,
		&in.UserID,
		&in.RawText,
		&in.Structured.Activity,
		&category,
		&energyLevel,
		&in.Structured.SocialPreference,
		&in.Structured.TimeSensitivity,
		&in.Structured.DurationEstimateMinutes,
		&in.Structured.Keywords,
		&in.Structured.Confidence,
		&in.Embedding,
		&lat,
		&lng,
		&in.Location.AccuracyMeters,
		&locationName,
		&status,
		&in.CreatedAt,
		&in.ExpiresAt,
		&in.MatchedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat != nil && lng != nil {
		in.Location.Latitude = *lat
		in.Location.Longitude = *lng
	}
	if locationName != nil {
		in.LocationName = *locationName
	}

	in.Structured.Category = intent.Category(category)
	in.Structured.EnergyLevel = intent.EnergyLevel(energyLevel)
	in.Status = intent.Status(status)

	return &in, nil
}
