// Package etl ingests the reservation and competitor batch files into the forecast store.
package etl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/support/exception"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

const moduleName = "etl"

var (
	reservationColumns = []string{"date", "room_type", "rooms_sold", "rooms_available", "adr", "revenue"}
	competitorColumns  = []string{"date", "competitor", "room_type", "rate"}
)

// Writer persists ingested rows with upsert semantics.
type Writer interface {
	UpsertReservations(ctx context.Context, rows []model.ReservationRecord) (int64, error)
	UpsertCompetitorRates(ctx context.Context, rows []model.CompetitorRateRecord) (int64, error)
}

// Summary reports what one ETL run ingested.
type Summary struct {
	Reservations    int64 `json:"reservations"`
	CompetitorRates int64 `json:"competitor_rates"`
	// NightlySkipped counts inbox rows that could not be mapped onto reservations.
	NightlySkipped int `json:"nightly_skipped"`
	// Skipped counts competitor rows dropped because their rate was not positive.
	Skipped int `json:"skipped"`
}

// Loader reads the configured batch files and upserts them.
type Loader struct {
	cfg    config.ETLConfig
	writer Writer
	loc    *time.Location
}

// NewLoader creates a Loader. Timestamps in date columns are read as UTC days.
func NewLoader(cfg config.ETLConfig, writer Writer) *Loader {
	return &Loader{cfg: cfg, writer: writer, loc: time.UTC}
}

// WithLocation sets the hotel time zone used to map timestamps in date columns to stay dates.
func (l *Loader) WithLocation(loc *time.Location) *Loader {
	if loc != nil {
		l.loc = loc
	}
	return l
}

// stayDate accepts a plain date or an RFC 3339 timestamp.
func (l *Loader) stayDate(rec record) (time.Time, error) {
	raw := rec.str("date")
	if d, err := model.ParseDay(raw); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, rec.invalid("date", fmt.Errorf("%q is neither YYYY-MM-DD nor RFC 3339", raw))
	}
	return model.DayIn(t, l.loc), nil
}

// Run ingests reservations, then competitor rates, then inspects the nightly inbox.
// A missing file is skipped. A malformed row fails the run and names its line.
func (l *Loader) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	start := time.Now()

	reservations, err := l.readReservations()
	if err != nil {
		return sum, err
	}
	if len(reservations) > 0 {
		if sum.Reservations, err = l.writer.UpsertReservations(ctx, reservations); err != nil {
			return sum, err
		}
	}

	rates, skipped, err := l.readCompetitorRates()
	if err != nil {
		return sum, err
	}
	sum.Skipped = skipped
	if len(rates) > 0 {
		if sum.CompetitorRates, err = l.writer.UpsertCompetitorRates(ctx, rates); err != nil {
			return sum, err
		}
	}

	sum.NightlySkipped = l.inspectNightly()

	logger.Infof("ETL upserted %d reservations and %d competitor rates in %v (nightly skipped %d, invalid rates skipped %d).",
		sum.Reservations, sum.CompetitorRates, time.Since(start), sum.NightlySkipped, sum.Skipped)
	return sum, nil
}

func (l *Loader) readReservations() ([]model.ReservationRecord, error) {
	records, ok, err := readFile(l.cfg.ReservationsPath, reservationColumns)
	if err != nil || !ok {
		return nil, err
	}

	type key struct {
		day  time.Time
		room string
	}
	seen := make(map[key]int, len(records))
	out := make([]model.ReservationRecord, 0, len(records))
	for _, rec := range records {
		r, err := l.parseReservation(rec)
		if err != nil {
			return nil, exception.NewPipelineError(moduleName, "invalid reservation row in "+l.cfg.ReservationsPath, err, false)
		}
		// One statement must not touch the same key twice, so the last row of a key wins here.
		k := key{r.StayDate, r.RoomType}
		if i, dup := seen[k]; dup {
			out[i] = r
			continue
		}
		seen[k] = len(out)
		out = append(out, r)
	}
	return out, nil
}

func (l *Loader) parseReservation(rec record) (model.ReservationRecord, error) {
	var r model.ReservationRecord
	var err error
	if r.StayDate, err = l.stayDate(rec); err != nil {
		return r, err
	}
	if r.RoomType = rec.str("room_type"); r.RoomType == "" {
		return r, rec.invalid("room_type", errors.New("empty"))
	}
	if r.RoomsSold, err = rec.int("rooms_sold"); err != nil {
		return r, err
	}
	if r.RoomsAvailable, err = rec.int("rooms_available"); err != nil {
		return r, err
	}
	if r.ADR, err = rec.float("adr"); err != nil {
		return r, err
	}
	if r.Revenue, err = rec.float("revenue"); err != nil {
		return r, err
	}
	if r.RoomsAvailable <= 0 {
		return r, rec.invalid("rooms_available", errors.New("must be positive"))
	}
	switch {
	case r.RoomsSold < 0:
		return r, rec.invalid("rooms_sold", errors.New("negative value"))
	case r.ADR < 0:
		return r, rec.invalid("adr", errors.New("negative value"))
	case r.Revenue < 0:
		return r, rec.invalid("revenue", errors.New("negative value"))
	}
	return r, nil
}

func (l *Loader) readCompetitorRates() ([]model.CompetitorRateRecord, int, error) {
	records, ok, err := readFile(l.cfg.CompetitorsPath, competitorColumns)
	if err != nil || !ok {
		return nil, 0, err
	}

	type key struct {
		day        time.Time
		competitor string
		room       string
	}
	seen := make(map[key]int, len(records))
	out := make([]model.CompetitorRateRecord, 0, len(records))
	skipped := 0
	for _, rec := range records {
		var r model.CompetitorRateRecord
		if r.StayDate, err = l.stayDate(rec); err != nil {
			return nil, 0, exception.NewPipelineError(moduleName, "invalid competitor row", err, false)
		}
		r.Competitor = rec.str("competitor")
		r.RoomType = rec.str("room_type")
		if r.Rate, err = rec.float("rate"); err != nil {
			return nil, 0, exception.NewPipelineError(moduleName, "invalid competitor row", err, false)
		}
		if r.Competitor == "" || r.RoomType == "" {
			return nil, 0, exception.NewPipelineError(moduleName, "invalid competitor row", rec.invalid("competitor", errors.New("empty")), false)
		}
		if r.Rate <= 0 {
			logger.Warnf("Skipping competitor rate %v at line %d: rate must be positive.", r.Rate, rec.line)
			skipped++
			continue
		}
		k := key{r.StayDate, r.Competitor, r.RoomType}
		if i, dup := seen[k]; dup {
			out[i] = r
			continue
		}
		seen[k] = len(out)
		out = append(out, r)
	}
	return out, skipped, nil
}

// inspectNightly counts the data rows of the nightly inbox file.
// Its date,room_type,occupancy,adr layout has no rooms_sold/rooms_available, so rows are reported and not ingested.
func (l *Loader) inspectNightly() int {
	if l.cfg.InboxPath == "" {
		return 0
	}
	f, err := os.Open(l.cfg.InboxPath)
	if err != nil {
		return 0
	}
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			lines++
		}
	}
	if sc.Err() != nil || lines <= 1 {
		return 0
	}
	logger.Warnf("Nightly inbox %s has %d rows that cannot be mapped to reservations; skipped.", l.cfg.InboxPath, lines-1)
	return lines - 1
}

// readFile opens path and reads its records. ok is false when the file does not exist.
func readFile(path string, required []string) (records []record, ok bool, err error) {
	if path == "" {
		return nil, false, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warnf("%s not found; skipping.", path)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, exception.NewPipelineError(moduleName, "failed to open "+path, err, true)
	}
	defer f.Close()

	records, err = readRecords(f, required)
	if err != nil {
		return nil, false, exception.NewPipelineError(moduleName, fmt.Sprintf("failed to read %s", path), err, false)
	}
	return records, true, nil
}
