package model

import "time"

// ForecastRecord is the demand forecast and recommended rate for one future (stay date, room type).
type ForecastRecord struct {
	StayDate       time.Time `gorm:"column:stay_date;primaryKey"`
	RoomType       string    `gorm:"column:room_type;primaryKey"`
	DemandForecast float64   `gorm:"column:demand_forecast"`
	CompetitorRate *float64  `gorm:"column:competitor_rate"`
	RecommendedADR float64   `gorm:"column:recommended_adr"`
}

// TableName specifies the table name for ForecastRecord.
func (ForecastRecord) TableName() string {
	return "forecasts"
}

// ForecastExport is the parquet layout of a forecast row.
type ForecastExport struct {
	RunID          string   `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	StayDate       int32    `parquet:"name=stay_date, type=INT32, convertedtype=DATE"`
	RoomType       string   `parquet:"name=room_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	DemandForecast float64  `parquet:"name=demand_forecast, type=DOUBLE"`
	CompetitorRate *float64 `parquet:"name=competitor_rate, type=DOUBLE, repetitiontype=OPTIONAL"`
	RecommendedADR float64  `parquet:"name=recommended_adr, type=DOUBLE"`
	GeneratedAt    int64    `parquet:"name=generated_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// NewForecastExport converts a forecast record for the parquet writer.
func NewForecastExport(runID string, r ForecastRecord, generatedAt time.Time) ForecastExport {
	return ForecastExport{
		RunID:          runID,
		StayDate:       int32(Day(r.StayDate).Unix() / 86400),
		RoomType:       r.RoomType,
		DemandForecast: r.DemandForecast,
		CompetitorRate: r.CompetitorRate,
		RecommendedADR: r.RecommendedADR,
		GeneratedAt:    generatedAt.UnixMilli(),
	}
}

// User is an API account.
type User struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Email        string    `gorm:"column:email;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

// TableName specifies the table name for User.
func (User) TableName() string {
	return "users"
}
