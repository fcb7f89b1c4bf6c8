package horizon

import (
	"sort"
	"time"

	"github.com/tigerroll/roomrate/internal/domain/model"
)

// asOfIndex answers "latest feature row of a room type dated on or before a day".
type asOfIndex map[string][]model.FeatureRow

func newAsOfIndex(rows []model.FeatureRow) asOfIndex {
	ix := make(asOfIndex)
	for _, r := range rows {
		ix[r.RoomType] = append(ix[r.RoomType], r)
	}
	for _, rs := range ix {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].StayDate.Before(rs[j].StayDate) })
	}
	return ix
}

// lookup returns the as-of row, or false when the room type has nothing on or before day.
func (ix asOfIndex) lookup(roomType string, day time.Time) (model.FeatureRow, bool) {
	rs := ix[roomType]
	// First row strictly after day; the one before it is the as-of match.
	i := sort.Search(len(rs), func(i int) bool { return rs[i].StayDate.After(day) })
	if i == 0 {
		return model.FeatureRow{}, false
	}
	return rs[i-1], true
}
