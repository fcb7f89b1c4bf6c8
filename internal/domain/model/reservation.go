package model

import "time"

// ReservationRecord is one night of sales history for a room type.
type ReservationRecord struct {
	StayDate       time.Time `gorm:"column:stay_date;primaryKey"`
	RoomType       string    `gorm:"column:room_type;primaryKey"`
	RoomsSold      int       `gorm:"column:rooms_sold"`
	RoomsAvailable int       `gorm:"column:rooms_available"`
	ADR            float64   `gorm:"column:adr"`
	Revenue        float64   `gorm:"column:revenue"`
}

// TableName specifies the table name for ReservationRecord.
func (ReservationRecord) TableName() string {
	return "reservations"
}

// Occupancy returns rooms sold over rooms available as a percentage clamped to [0, 100].
// A record without available rooms has zero occupancy.
func (r ReservationRecord) Occupancy() float64 {
	if r.RoomsAvailable <= 0 {
		return 0
	}
	occ := float64(r.RoomsSold) / float64(r.RoomsAvailable) * 100.0
	switch {
	case occ < 0:
		return 0
	case occ > 100:
		return 100
	}
	return occ
}

// LatestPerNight normalises stay dates and keeps the last record per (stay date, room type).
// The first occurrence fixes the position of a key in the result.
func LatestPerNight(reservations []ReservationRecord) []ReservationRecord {
	type key struct {
		day      time.Time
		roomType string
	}
	pos := make(map[key]int, len(reservations))
	out := make([]ReservationRecord, 0, len(reservations))
	for _, r := range reservations {
		r.StayDate = Day(r.StayDate)
		k := key{r.StayDate, r.RoomType}
		if i, ok := pos[k]; ok {
			out[i] = r
			continue
		}
		pos[k] = len(out)
		out = append(out, r)
	}
	return out
}

// CompetitorRateRecord is a rate published by one competitor for a stay date and room type.
type CompetitorRateRecord struct {
	StayDate   time.Time `gorm:"column:stay_date;primaryKey"`
	Competitor string    `gorm:"column:competitor;primaryKey"`
	RoomType   string    `gorm:"column:room_type;primaryKey"`
	Rate       float64   `gorm:"column:rate"`
}

// TableName specifies the table name for CompetitorRateRecord.
func (CompetitorRateRecord) TableName() string {
	return "competitor_rates"
}
