package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
	"wqd/internal/models"
	"wqd/internal/storage/interfaces"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// readingRow is the relational shape of a reading. Seq breaks ties between
// readings sharing a timestamp.
type readingRow struct {
	Seq             uint64    `gorm:"primaryKey;autoIncrement"`
	ReadingID       string    `gorm:"column:reading_id;uniqueIndex;not null"`
	SourceID        string    `gorm:"column:source_id;index:idx_source_recorded,priority:1;not null"`
	PH              *float64  `gorm:"column:ph"`
	TemperatureC    *float64  `gorm:"column:temperature_c"`
	TurbidityNTU    *float64  `gorm:"column:turbidity_ntu"`
	TDSPPM          *float64  `gorm:"column:tds_ppm"`
	DissolvedOxygen *float64  `gorm:"column:dissolved_oxygen"`
	Pin             string    `gorm:"column:pin"`
	RecordedAt      time.Time `gorm:"column:recorded_at;index:idx_source_recorded,priority:2;not null"`
}

func (readingRow) TableName() string {
	return "readings"
}

func rowFromReading(r models.Reading) readingRow {
	return readingRow{
		ReadingID:       r.ID,
		SourceID:        r.SourceID,
		PH:              r.PH,
		TemperatureC:    r.TemperatureC,
		TurbidityNTU:    r.TurbidityNTU,
		TDSPPM:          r.TDSPPM,
		DissolvedOxygen: r.DissolvedOxygen,
		Pin:             r.Pin,
		RecordedAt:      r.RecordedAt,
	}
}

func (row readingRow) reading() models.Reading {
	return models.Reading{
		ID:              row.ReadingID,
		SourceID:        row.SourceID,
		PH:              row.PH,
		TemperatureC:    row.TemperatureC,
		TurbidityNTU:    row.TurbidityNTU,
		TDSPPM:          row.TDSPPM,
		DissolvedOxygen: row.DissolvedOxygen,
		Pin:             row.Pin,
		RecordedAt:      row.RecordedAt.UTC(),
	}
}

// fieldColumns whitelists the columns LatestByField may filter on.
var fieldColumns = map[models.Field]string{
	models.FieldPH:              "ph",
	models.FieldTemperature:     "temperature_c",
	models.FieldTurbidity:       "turbidity_ntu",
	models.FieldTDS:             "tds_ppm",
	models.FieldDissolvedOxygen: "dissolved_oxygen",
}

const newestFirstOrder = "recorded_at desc, seq desc"

type PostgresReadingStore struct {
	db *gorm.DB
}

var _ interfaces.ReadingStore = (*PostgresReadingStore)(nil)

func NewPostgresReadingStore(dsn string) (*PostgresReadingStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newPostgresReadingStore(db)
}

func newPostgresReadingStore(db *gorm.DB) (*PostgresReadingStore, error) {
	if err := db.AutoMigrate(&readingRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate readings: %w", err)
	}
	return &PostgresReadingStore{db: db}, nil
}

func (p *PostgresReadingStore) Append(ctx context.Context, sourceID string, r models.Reading) (models.Handle, error) {
	r.SourceID = sourceID
	// timestamptz keeps microseconds
	r.RecordedAt = r.RecordedAt.Truncate(time.Microsecond)
	if r.ID == "" {
		r.ID = newReadingID()
	}
	row := rowFromReading(r)
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Handle{}, err
	}
	return models.Handle{ID: r.ID, SourceID: sourceID, RecordedAt: r.RecordedAt}, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}

func (p *PostgresReadingStore) Latest(ctx context.Context, sourceID string) (models.Reading, error) {
	var row readingRow
	err := p.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order(newestFirstOrder).
		First(&row).Error
	if err != nil {
		return models.Reading{}, notFound(err)
	}
	return row.reading(), nil
}

func (p *PostgresReadingStore) LatestByField(ctx context.Context, sourceID string, field models.Field) (models.FieldValue, error) {
	column, ok := fieldColumns[field]
	if !ok {
		return models.FieldValue{}, fmt.Errorf("unknown field %q", field)
	}

	var row readingRow
	err := p.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Where(column + " IS NOT NULL").
		Order(newestFirstOrder).
		First(&row).Error
	if err != nil {
		return models.FieldValue{}, notFound(err)
	}
	r := row.reading()
	v, _ := r.Value(field)
	return models.FieldValue{Field: field, Value: v, RecordedAt: r.RecordedAt}, nil
}

func (p *PostgresReadingStore) History(ctx context.Context, sourceID string, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var rows []readingRow
	err := p.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order(newestFirstOrder).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Reading, len(rows))
	for i, row := range rows {
		out[i] = row.reading()
	}
	return out, nil
}

func (p *PostgresReadingStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
