// Package brief writes the daily rate brief: a short summary of the coming week's
// recommended rates, optionally phrased by a chat model and sent by mail.
package brief

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/feature"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

// Subject is the mail subject of a sent brief.
const Subject = "Daily Rate Brief"

// ErrNoForecasts is returned when the brief window holds no forecast rows.
var ErrNoForecasts = errors.New("no forecast rows")

// Item is one (stay date, room type) line of the brief.
type Item struct {
	StayDate         time.Time `json:"-"`
	Day              string    `json:"stay_date"`
	RoomType         string    `json:"room_type"`
	DemandForecast   float64   `json:"demand_forecast"`
	RecommendedADR   float64   `json:"rec_adr"`
	CompetitorMedian *float64  `json:"comp_median,omitempty"`
}

// Source reads the forecasts and competitor medians of a date range.
type Source interface {
	FindForecasts(ctx context.Context, start, end time.Time) ([]model.ForecastRecord, error)
	CompetitorMedians(ctx context.Context, start, end time.Time) (feature.CompetitorIndex, error)
}

// Writer turns the brief items into text.
type Writer interface {
	Write(ctx context.Context, items []Item) (string, error)
}

// Sender delivers a brief by mail.
type Sender interface {
	Send(ctx context.Context, to, subject, text string) error
}

// Request selects whether the brief is mailed and to whom.
type Request struct {
	Send bool
	To   string
}

// Result is a generated brief.
type Result struct {
	Text string `json:"brief"`
	Sent bool   `json:"sent"`
	To   string `json:"to,omitempty"`
}

// Service generates briefs over the next Days stay dates starting today.
type Service struct {
	source    Source
	writer    Writer
	sender    Sender
	days      int
	defaultTo string
	loc       *time.Location
	now       func() time.Time
}

// NewService creates a Service. A nil writer uses FallbackWriter.
func NewService(source Source, writer Writer, sender Sender, days int, defaultTo string, loc *time.Location) *Service {
	if writer == nil {
		writer = FallbackWriter{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		source:    source,
		writer:    writer,
		sender:    sender,
		days:      days,
		defaultTo: defaultTo,
		loc:       loc,
		now:       time.Now,
	}
}

// Items returns the brief lines of the window, ordered by stay date then room type.
func (s *Service) Items(ctx context.Context) ([]Item, error) {
	start := model.DayIn(s.now(), s.loc)
	end := start.AddDate(0, 0, s.days-1)

	rows, err := s.source.FindForecasts(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to read forecasts: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoForecasts
	}
	medians, err := s.source.CompetitorMedians(ctx, start, end)
	if err != nil {
		logger.Warnf("Competitor medians unavailable for brief: %v", err)
		medians = feature.CompetitorIndex{}
	}

	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, Item{
			StayDate:         r.StayDate,
			Day:              model.FormatDay(r.StayDate),
			RoomType:         r.RoomType,
			DemandForecast:   r.DemandForecast,
			RecommendedADR:   r.RecommendedADR,
			CompetitorMedian: medians.Median(r.StayDate, r.RoomType),
		})
	}
	return items, nil
}

// Generate writes the brief and mails it when requested.
// A failing writer degrades to the fallback text; a failing sender fails the call.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return Result{}, err
	}

	text, err := s.writer.Write(ctx, items)
	if err != nil {
		logger.Warnf("Brief writer failed, using fallback text: %v", err)
		text, _ = FallbackWriter{}.Write(ctx, items)
	}
	result := Result{Text: text}

	if !req.Send {
		return result, nil
	}
	to := strings.TrimSpace(req.To)
	if to == "" {
		to = s.defaultTo
	}
	if s.sender == nil {
		logger.Warnf("No brief sender configured; skipping mail to %s", to)
		return result, nil
	}
	if err := s.sender.Send(ctx, to, Subject, text); err != nil {
		return result, fmt.Errorf("failed to send brief to %s: %w", to, err)
	}
	result.Sent = true
	result.To = to
	return result, nil
}

// FallbackWriter renders one plain line per item.
type FallbackWriter struct{}

// Write implements Writer.
func (FallbackWriter) Write(_ context.Context, items []Item) (string, error) {
	var b strings.Builder
	b.WriteString("Daily Rate Brief (fallback):")
	for _, it := range items {
		fmt.Fprintf(&b, "\n%s %s: demand %.0f%%, rec ADR $%.2f", it.Day, it.RoomType, it.DemandForecast*100, it.RecommendedADR)
		if it.CompetitorMedian != nil {
			fmt.Fprintf(&b, ", comp median $%.2f", *it.CompetitorMedian)
		}
	}
	return b.String(), nil
}
