package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"PoolCast/internal/domain/models"
	pkgch "PoolCast/pkg/clickhouse"
	applogger "PoolCast/pkg/logger"
)

const insertChunkSize = 1000

// CHObservationStore implements ObservationStore backed by ClickHouse.
// The observations table is a ReplacingMergeTree ordered by ts, so
// replayed inserts converge instead of duplicating.
type CHObservationStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHObservationStore(ch *pkgch.Client, l *applogger.Logger) *CHObservationStore {
	return &CHObservationStore{db: ch.DB(), l: l}
}

const observationCols = `ts, price, demand_mw, gas_mw, wind_mw, solar_mw, hydro_mw, coal_mw, temp_c, wind_kmh, is_valid`

func (s *CHObservationStore) InsertBatch(ctx context.Context, rows []models.Observation) error {
	if len(rows) == 0 {
		return nil
	}

	for off := 0; off < len(rows); off += insertChunkSize {
		end := off + insertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.insertChunk(ctx, rows[off:end]); err != nil {
			return fmt.Errorf("insert observations chunk at %d: %w", off, err)
		}
	}
	return nil
}

func (s *CHObservationStore) insertChunk(ctx context.Context, rows []models.Observation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO observations (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, observationCols))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		o := &rows[i]
		valid := uint8(0)
		if o.IsValid {
			valid = 1
		}
		if _, err := stmt.ExecContext(ctx,
			o.TS.UTC(), o.Price, o.DemandMW,
			o.GasMW, o.WindMW, o.SolarMW, o.HydroMW, o.CoalMW,
			o.TempC, o.WindKMH, valid,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (s *CHObservationStore) ListRange(ctx context.Context, from, to time.Time) ([]models.Observation, error) {
	q := fmt.Sprintf(`
        SELECT %s FROM observations FINAL
        WHERE ts >= ? AND ts < ?
        ORDER BY ts ASC`, observationCols)

	rows, err := s.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		s.l.Error("clickhouse list observations query error", applogger.Error(err))
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

func (s *CHObservationStore) ListPage(ctx context.Context, after time.Time, limit int) ([]models.Observation, error) {
	q := fmt.Sprintf(`
        SELECT %s FROM observations FINAL
        WHERE ts > ?
        ORDER BY ts ASC
        LIMIT ?`, observationCols)

	rows, err := s.db.QueryContext(ctx, q, after.UTC(), limit)
	if err != nil {
		s.l.Error("clickhouse observations page query error",
			applogger.Time("after", after),
			applogger.Error(err))
		return nil, fmt.Errorf("observations page: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

func (s *CHObservationStore) FindNearest(ctx context.Context, target time.Time, tolerance time.Duration) (*models.Observation, error) {
	q := fmt.Sprintf(`
        SELECT %s FROM observations FINAL
        WHERE ts >= ? AND ts <= ?
        ORDER BY abs(toInt64(ts) - toInt64(toDateTime(?)))
        LIMIT 1`, observationCols)

	lo := target.Add(-tolerance).UTC()
	hi := target.Add(tolerance).UTC()
	rows, err := s.db.QueryContext(ctx, q, lo, hi, target.UTC())
	if err != nil {
		return nil, fmt.Errorf("find nearest observation: %w", err)
	}
	defer rows.Close()

	out, err := scanObservations(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (s *CHObservationStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count() FROM observations FINAL`).Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}

func scanObservations(rows *sql.Rows) ([]models.Observation, error) {
	out := make([]models.Observation, 0, 1024)
	for rows.Next() {
		var (
			o     models.Observation
			valid uint8
		)
		if err := rows.Scan(
			&o.TS, &o.Price, &o.DemandMW,
			&o.GasMW, &o.WindMW, &o.SolarMW, &o.HydroMW, &o.CoalMW,
			&o.TempC, &o.WindKMH, &valid,
		); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.IsValid = valid == 1
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
