package etl_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/etl"
	"github.com/tigerroll/roomrate/internal/support/exception"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) UpsertReservations(ctx context.Context, rows []model.ReservationRecord) (int64, error) {
	args := m.Called(ctx, rows)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockWriter) UpsertCompetitorRates(ctx context.Context, rows []model.CompetitorRateRecord) (int64, error) {
	args := m.Called(ctx, rows)
	return args.Get(0).(int64), args.Error(1)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoader_Run(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ETLConfig{
		ReservationsPath: writeFile(t, dir, "reservations.csv",
			"date,room_type,rooms_sold,rooms_available,adr,revenue\n"+
				"2025-03-01,King,8,10,150,1200\n"+
				"2025-03-01,Twin,3,10,90,270\n"+
				"\n"+
				"2025-03-01,King,9,10,155,1395\n"),
		CompetitorsPath: writeFile(t, dir, "competitors.csv",
			"date,competitor,room_type,rate\n"+
				"2025-03-01,A,King,180\n"+
				"2025-03-01,B,King,0\n"),
		InboxPath: writeFile(t, dir, "nightly.csv", "date,room_type,occupancy,adr\n"),
	}

	w := &mockWriter{}
	w.On("UpsertReservations", mock.Anything, mock.MatchedBy(func(rows []model.ReservationRecord) bool {
		return len(rows) == 2 && rows[0].RoomType == "King" && rows[0].RoomsSold == 9 &&
			rows[0].StayDate.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	})).Return(int64(2), nil)
	w.On("UpsertCompetitorRates", mock.Anything, mock.MatchedBy(func(rows []model.CompetitorRateRecord) bool {
		return len(rows) == 1 && rows[0].Rate == 180
	})).Return(int64(1), nil)

	sum, err := etl.NewLoader(cfg, w).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, etl.Summary{Reservations: 2, CompetitorRates: 1, Skipped: 1}, sum)
	w.AssertExpectations(t)
}

func TestLoader_MissingFilesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ETLConfig{
		ReservationsPath: filepath.Join(dir, "none.csv"),
		CompetitorsPath:  filepath.Join(dir, "none2.csv"),
		InboxPath:        filepath.Join(dir, "none3.csv"),
	}
	w := &mockWriter{}
	sum, err := etl.NewLoader(cfg, w).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, etl.Summary{}, sum)
	w.AssertNotCalled(t, "UpsertReservations", mock.Anything, mock.Anything)
}

func TestLoader_MalformedRowNamesLine(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ETLConfig{
		ReservationsPath: writeFile(t, dir, "reservations.csv",
			"date,room_type,rooms_sold,rooms_available,adr,revenue\n"+
				"2025-03-01,King,8,10,150,1200\n"+
				"2025-03-02,King,eight,10,150,1200\n"),
	}
	_, err := etl.NewLoader(cfg, &mockWriter{}).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrInvalidInput)
	assert.Contains(t, err.Error(), "line 3")
	assert.Equal(t, "etl", exception.ModuleOf(err))
}

func TestLoader_MissingColumn(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ETLConfig{
		CompetitorsPath: writeFile(t, dir, "competitors.csv", "date,room_type,rate\n2025-03-01,King,100\n"),
	}
	_, err := etl.NewLoader(cfg, &mockWriter{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "competitor"`)
}

func TestLoader_NightlyRowsAreReported(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ETLConfig{
		InboxPath: writeFile(t, dir, "nightly.csv", "date,room_type,occupancy,adr\n2025-03-01,King,80,150\n2025-03-01,Twin,40,90\n"),
	}
	sum, err := etl.NewLoader(cfg, &mockWriter{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.NightlySkipped)
}

func TestLoader_TimestampDatesUseHotelZone(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ETLConfig{
		ReservationsPath: writeFile(t, dir, "reservations.csv",
			"date,room_type,rooms_sold,rooms_available,adr,revenue\n"+
				"2025-03-01T20:00:00Z,King,8,10,150,1200\n"),
	}
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	w := &mockWriter{}
	w.On("UpsertReservations", mock.Anything, mock.MatchedBy(func(rows []model.ReservationRecord) bool {
		return len(rows) == 1 && rows[0].StayDate.Equal(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC))
	})).Return(int64(1), nil)

	_, err = etl.NewLoader(cfg, w).WithLocation(tokyo).Run(context.Background())
	require.NoError(t, err)
	w.AssertExpectations(t)
}

func TestLoader_RejectsRowsBreakingRecordRules(t *testing.T) {
	const header = "date,room_type,rooms_sold,rooms_available,adr,revenue\n"
	cases := []struct {
		name   string
		row    string
		column string
	}{
		{"no rooms available", "2025-03-02,King,0,0,150,0\n", "rooms_available"},
		{"NaN adr", "2025-03-02,King,8,10,NaN,1200\n", "adr"},
		{"infinite revenue", "2025-03-02,King,8,10,150,+Inf\n", "revenue"},
		{"negative sold", "2025-03-02,King,-1,10,150,0\n", "rooms_sold"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := config.ETLConfig{
				ReservationsPath: writeFile(t, dir, "reservations.csv",
					header+"2025-03-01,King,8,10,150,1200\n"+tc.row),
			}
			w := &mockWriter{}
			_, err := etl.NewLoader(cfg, w).Run(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, exception.ErrInvalidInput)
			assert.Contains(t, err.Error(), "line 3")
			assert.Contains(t, err.Error(), `column "`+tc.column+`"`)
			w.AssertNotCalled(t, "UpsertReservations", mock.Anything, mock.Anything)
		})
	}
}

func TestLoader_RejectsNonFiniteCompetitorRate(t *testing.T) {
	for _, rate := range []string{"Inf", "NaN"} {
		dir := t.TempDir()
		cfg := config.ETLConfig{
			CompetitorsPath: writeFile(t, dir, "competitors.csv",
				"date,competitor,room_type,rate\n2025-03-01,A,King,"+rate+"\n"),
		}
		w := &mockWriter{}
		_, err := etl.NewLoader(cfg, w).Run(context.Background())
		require.Error(t, err, rate)
		assert.ErrorIs(t, err, exception.ErrInvalidInput)
		assert.Contains(t, err.Error(), "line 2")
		w.AssertNotCalled(t, "UpsertCompetitorRates", mock.Anything, mock.Anything)
	}
}
