package feature

import (
	"time"

	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/stats"
)

// CompetitorKey identifies the competitor rates published for one stay date and room type.
type CompetitorKey struct {
	StayDate time.Time
	RoomType string
}

// CompetitorIndex holds the median competitor rate per (stay date, room type).
type CompetitorIndex map[CompetitorKey]float64

// NewCompetitorIndex groups competitor rates and keeps only their median.
func NewCompetitorIndex(rates []model.CompetitorRateRecord) CompetitorIndex {
	grouped := make(map[CompetitorKey][]float64)
	for _, r := range rates {
		k := CompetitorKey{StayDate: model.Day(r.StayDate), RoomType: r.RoomType}
		grouped[k] = append(grouped[k], r.Rate)
	}
	index := make(CompetitorIndex, len(grouped))
	for k, rs := range grouped {
		index[k] = stats.Median(rs)
	}
	return index
}

// Median returns the competitor median for the exact date and room type, or nil.
func (ix CompetitorIndex) Median(stayDate time.Time, roomType string) *float64 {
	v, ok := ix[CompetitorKey{StayDate: model.Day(stayDate), RoomType: roomType}]
	if !ok {
		return nil
	}
	return &v
}
