// Package repository reads and writes the forecast store through a database.DBConnection.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tigerroll/roomrate/internal/adapter/database"
	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/feature"
	"github.com/tigerroll/roomrate/internal/support/exception"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

// BatchSize is the number of rows sent per upsert statement.
const BatchSize = 500

var (
	reservationKey = []string{"stay_date", "room_type"}
	competitorKey  = []string{"stay_date", "competitor", "room_type"}
	forecastKey    = []string{"stay_date", "room_type"}

	reservationColumns = []string{"rooms_sold", "rooms_available", "adr", "revenue"}
	competitorColumns  = []string{"rate"}
	forecastColumns    = []string{"demand_forecast", "competitor_rate", "recommended_adr"}
)

// Store is the forecast store.
type Store struct {
	conn      database.DBConnection
	txManager database.TransactionManager
}

// NewStore creates a Store on conn. Multi-row writes run in transactions created by txFactory.
func NewStore(conn database.DBConnection, txFactory database.TransactionManagerFactory) *Store {
	return &Store{conn: conn, txManager: txFactory.NewTransactionManager(conn)}
}

// ReadReservations returns the whole reservation history ordered by stay date and room type.
func (s *Store) ReadReservations(ctx context.Context) ([]model.ReservationRecord, error) {
	var rows []model.ReservationRecord
	if err := s.conn.ExecuteQueryAdvanced(ctx, &rows, nil, "stay_date, room_type", 0); err != nil {
		return nil, exception.NewPipelineError("reader", "failed to read reservations", err, true)
	}
	for i := range rows {
		rows[i].StayDate = model.Day(rows[i].StayDate)
	}
	logger.Debugf("Read %d reservation rows from '%s'.", len(rows), s.conn.Name())
	return rows, nil
}

// ReadCompetitorRates returns every competitor rate.
// Competitor data is optional: a missing table or a failed read yields an empty result.
func (s *Store) ReadCompetitorRates(ctx context.Context) ([]model.CompetitorRateRecord, error) {
	var rows []model.CompetitorRateRecord
	if err := s.conn.ExecuteQueryAdvanced(ctx, &rows, nil, "stay_date, room_type, competitor", 0); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if s.conn.IsTableNotExistError(err) {
			logger.Warnf("Competitor rate table not found in '%s', continuing without competitor data.", s.conn.Name())
		} else {
			logger.Warnf("Failed to read competitor rates, continuing without competitor data: %v", err)
		}
		return []model.CompetitorRateRecord{}, nil
	}
	for i := range rows {
		rows[i].StayDate = model.Day(rows[i].StayDate)
	}
	return rows, nil
}

// UpsertReservations writes reservation rows, replacing existing (stay_date, room_type) keys.
func (s *Store) UpsertReservations(ctx context.Context, rows []model.ReservationRecord) (int64, error) {
	return upsertAll(ctx, s, rows, "reservations", reservationKey, reservationColumns)
}

// UpsertCompetitorRates writes competitor rates, replacing existing (stay_date, competitor, room_type) keys.
func (s *Store) UpsertCompetitorRates(ctx context.Context, rows []model.CompetitorRateRecord) (int64, error) {
	return upsertAll(ctx, s, rows, "competitor_rates", competitorKey, competitorColumns)
}

// UpsertForecasts writes a forecast batch in one transaction.
// Re-running with the same batch leaves the table unchanged.
func (s *Store) UpsertForecasts(ctx context.Context, rows []model.ForecastRecord) (int64, error) {
	return upsertAll(ctx, s, rows, "forecasts", forecastKey, forecastColumns)
}

// FindForecasts returns the stored forecasts with start <= stay_date <= end.
func (s *Store) FindForecasts(ctx context.Context, start, end time.Time) ([]model.ForecastRecord, error) {
	var rows []model.ForecastRecord
	err := s.conn.ExecuteQueryWhere(ctx, &rows, "stay_date >= ? AND stay_date <= ?",
		[]interface{}{model.Day(start), model.Day(end)}, "stay_date, room_type")
	if err != nil {
		return nil, exception.NewPipelineError("reader", "failed to read forecasts", err, true)
	}
	for i := range rows {
		rows[i].StayDate = model.Day(rows[i].StayDate)
	}
	return rows, nil
}

// CompetitorMedians returns the median competitor rate per (stay date, room type) with start <= stay_date <= end.
func (s *Store) CompetitorMedians(ctx context.Context, start, end time.Time) (feature.CompetitorIndex, error) {
	var rows []model.CompetitorRateRecord
	err := s.conn.ExecuteQueryWhere(ctx, &rows, "stay_date >= ? AND stay_date <= ?",
		[]interface{}{model.Day(start), model.Day(end)}, "")
	if err != nil {
		if s.conn.IsTableNotExistError(err) {
			return feature.CompetitorIndex{}, nil
		}
		return nil, exception.NewPipelineError("reader", "failed to read competitor rates", err, true)
	}
	return feature.NewCompetitorIndex(rows), nil
}

// upsertAll writes rows in batches of BatchSize inside a single transaction.
// It returns the number of rows written.
func upsertAll[T any](ctx context.Context, s *Store, rows []T, table string, conflict, update []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return 0, exception.NewPipelineError("writer", "failed to begin transaction", err, true)
	}
	for start := 0; start < len(rows); start += BatchSize {
		end := min(start+BatchSize, len(rows))
		batch := rows[start:end]
		if _, err := tx.ExecuteUpsert(ctx, &batch, table, conflict, update); err != nil {
			if rbErr := s.txManager.Rollback(tx); rbErr != nil {
				logger.Errorf("Rollback of '%s' upsert failed: %v", table, rbErr)
			}
			return 0, exception.NewPipelineErrorf("writer", "failed to upsert %s rows %d-%d", table, start, end, err)
		}
	}
	if err := s.txManager.Commit(tx); err != nil {
		return 0, exception.NewPipelineError("writer", "failed to commit "+table+" upsert", err, true)
	}
	logger.Debugf("Upserted %d rows into '%s'.", len(rows), table)
	return int64(len(rows)), nil
}
