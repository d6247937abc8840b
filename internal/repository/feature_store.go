package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PoolCast/internal/domain/models"
	pkgch "PoolCast/pkg/clickhouse"
	applogger "PoolCast/pkg/logger"
)

// CHFeatureStore implements FeatureStore backed by ClickHouse. The
// features table is ReplacingMergeTree(computed_at) ordered by ts, so
// recomputation upserts rather than duplicates.
type CHFeatureStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHFeatureStore(ch *pkgch.Client, l *applogger.Logger) *CHFeatureStore {
	return &CHFeatureStore{db: ch.DB(), l: l}
}

const featureCols = `ts, price, lag_1h, lag_24h, lag_168h,
    roll_mean_3h, roll_std_3h, roll_mean_24h, roll_std_24h,
    volatility_24h, momentum_3h, gas_lag_1d, gas_lag_7d, gas_lag_30d,
    curtailment_mw, computed_at`

func (s *CHFeatureStore) UpsertBatch(ctx context.Context, rows []models.FeatureRecord) error {
	if len(rows) == 0 {
		return nil
	}

	for off := 0; off < len(rows); off += insertChunkSize {
		end := off + insertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.insertChunk(ctx, rows[off:end]); err != nil {
			return fmt.Errorf("upsert features chunk at %d: %w", off, err)
		}
	}
	return nil
}

func (s *CHFeatureStore) insertChunk(ctx context.Context, rows []models.FeatureRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO features (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, featureCols))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		f := &rows[i]
		if _, err := stmt.ExecContext(ctx,
			f.TS.UTC(), f.Price, f.Lag1h, f.Lag24h, f.Lag168h,
			f.RollMean3h, f.RollStd3h, f.RollMean24h, f.RollStd24h,
			f.Volatility24h, f.Momentum3h, f.GasLag1d, f.GasLag7d, f.GasLag30d,
			f.CurtailmentMW, f.ComputedAt.UTC(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (s *CHFeatureStore) ListRange(ctx context.Context, from, to time.Time) ([]models.FeatureRecord, error) {
	q := fmt.Sprintf(`
        SELECT %s FROM features FINAL
        WHERE ts >= ? AND ts < ?
        ORDER BY ts ASC`, featureCols)

	rows, err := s.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		s.l.Error("clickhouse list features query error", applogger.Error(err))
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	return scanFeatures(rows)
}

func (s *CHFeatureStore) Latest(ctx context.Context) (*models.FeatureRecord, error) {
	q := fmt.Sprintf(`
        SELECT %s FROM features FINAL
        ORDER BY ts DESC
        LIMIT 1`, featureCols)

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("latest feature: %w", err)
	}
	defer rows.Close()

	out, err := scanFeatures(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func scanFeatures(rows *sql.Rows) ([]models.FeatureRecord, error) {
	out := make([]models.FeatureRecord, 0, 1024)
	for rows.Next() {
		var f models.FeatureRecord
		if err := rows.Scan(
			&f.TS, &f.Price, &f.Lag1h, &f.Lag24h, &f.Lag168h,
			&f.RollMean3h, &f.RollStd3h, &f.RollMean24h, &f.RollStd24h,
			&f.Volatility24h, &f.Momentum3h, &f.GasLag1d, &f.GasLag7d, &f.GasLag30d,
			&f.CurtailmentMW, &f.ComputedAt,
		); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
