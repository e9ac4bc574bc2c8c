package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/index-compare/internal/model"
)

const observationSchema = `
	CREATE TABLE IF NOT EXISTS index_observations (
		source_id  VARCHAR(32) NOT NULL,
		trade_date CHAR(8) NOT NULL,
		close      DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (source_id, trade_date)
	)
`

// ObservationRepository stores daily closes per upstream instrument id
type ObservationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *sqlx.DB, logger *zap.Logger) *ObservationRepository {
	return &ObservationRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the observation table if it does not exist
func (r *ObservationRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, observationSchema); err != nil {
		r.logger.Error("Failed to create observation schema", zap.Error(err))
		return fmt.Errorf("failed to create observation schema: %w", err)
	}
	return nil
}

// ListRange returns the stored observations of sourceID within [startDate, endDate]
// in ascending date order. Empty bounds are open.
func (r *ObservationRepository) ListRange(ctx context.Context, sourceID, startDate, endDate string) (model.Series, error) {
	query := `SELECT trade_date, close FROM index_observations WHERE source_id = ?`
	args := []interface{}{sourceID}

	if startDate != "" {
		query += " AND trade_date >= ?"
		args = append(args, startDate)
	}
	if endDate != "" {
		query += " AND trade_date <= ?"
		args = append(args, endDate)
	}
	query += " ORDER BY trade_date"

	var series model.Series
	if err := r.db.SelectContext(ctx, &series, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to list observations",
			zap.Error(err),
			zap.String("source_id", sourceID))
		return nil, err
	}
	return series, nil
}

// Upsert inserts or updates a batch of observations for sourceID in one transaction
func (r *ObservationRepository) Upsert(ctx context.Context, sourceID string, series model.Series) error {
	if len(series) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO index_observations (source_id, trade_date, close)
		VALUES (?, ?, ?)
		ON CONFLICT (source_id, trade_date)
		DO UPDATE SET
			close = EXCLUDED.close,
			updated_at = CURRENT_TIMESTAMP
	`))
	if err != nil {
		r.logger.Error("Failed to prepare statement", zap.Error(err))
		return err
	}
	defer stmt.Close()

	for _, obs := range series {
		if _, err := stmt.ExecContext(ctx, sourceID, obs.TradeDate, obs.Close); err != nil {
			r.logger.Error("Failed to upsert observation",
				zap.Error(err),
				zap.String("source_id", sourceID),
				zap.String("trade_date", obs.TradeDate))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", zap.Error(err))
		return err
	}
	return nil
}

// LatestDate returns the most recent stored trade date of sourceID, or "" when none
func (r *ObservationRepository) LatestDate(ctx context.Context, sourceID string) (string, error) {
	var latest *string
	query := r.db.Rebind(`SELECT MAX(trade_date) FROM index_observations WHERE source_id = ?`)
	if err := r.db.GetContext(ctx, &latest, query, sourceID); err != nil {
		r.logger.Error("Failed to get latest observation date",
			zap.Error(err),
			zap.String("source_id", sourceID))
		return "", err
	}
	if latest == nil {
		return "", nil
	}
	return *latest, nil
}
