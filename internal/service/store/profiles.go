package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/domain"
)

// ProfileRepository persists onboarding interests and taste profile results.
// Interests are written once at onboarding completion; a profile result is
// upserted, so a re-run replaces the previous artifact.
type ProfileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewProfileRepository(postgres *PostgresService, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

func (r *ProfileRepository) SaveRawInterests(ctx context.Context, raw *domain.RawInterests) error {
	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal raw interests: %w", err)
	}

	query := `
		INSERT INTO raw_interests (user_id, payload, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET payload = EXCLUDED.payload, created_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, raw.UserID, payload); err != nil {
		return fmt.Errorf("failed to save raw interests: %w", err)
	}

	r.logger.Info("Raw interests saved", zap.String("user_id", raw.UserID))
	return nil
}

func (r *ProfileRepository) LoadRawInterests(ctx context.Context, userID string) (*domain.RawInterests, error) {
	query := `SELECT payload FROM raw_interests WHERE user_id = $1 LIMIT 1`

	var payload []byte
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query raw interests: %w", err)
	}

	var raw domain.RawInterests
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal raw interests: %w", err)
	}

	return &raw, nil
}

// SaveProfileResult stores the terminal pipeline artifact, replacing any
// previous result for the user.
func (r *ProfileRepository) SaveProfileResult(ctx context.Context, userID string, result *domain.TasteProfileResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal profile result: %w", err)
	}

	query := `
		INSERT INTO taste_profiles (user_id, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, userID, payload); err != nil {
		return fmt.Errorf("failed to save profile result: %w", err)
	}

	r.logger.Info("Taste profile saved",
		zap.String("user_id", userID),
		zap.Int("primary_entities", len(result.PrimaryEntities)),
		zap.Int("expansions", len(result.DomainExpansions)),
		zap.Int("cross_domain", len(result.CrossDomainInsights)),
	)
	return nil
}

func (r *ProfileRepository) LoadProfileResult(ctx context.Context, userID string) (*domain.TasteProfileResult, error) {
	query := `SELECT payload FROM taste_profiles WHERE user_id = $1 LIMIT 1`

	var payload []byte
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile result: %w", err)
	}

	var result domain.TasteProfileResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile result: %w", err)
	}

	return &result, nil
}
