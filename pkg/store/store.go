package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/menta2k/image-annotator/pkg/mark"
	"github.com/menta2k/image-annotator/pkg/types"
)

// MarkRecord is the persisted form of one mark
type MarkRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	FramePath   string `gorm:"index"`
	Position    int
	ClassID     int `gorm:"index"`
	Name        string
	Provisional bool
	Confidence  float64

	// Points holds the four normalized points in insertion order
	Points datatypes.JSON

	X, Y, Width, Height     int
	ImageWidth, ImageHeight int

	// Outline is the closed TL-TR-BR-BL ring as WKT
	Outline   string
	UpdatedAt time.Time
}

// ClassCount is one row of CountByClass
type ClassCount struct {
	ClassID int
	Count   int64
}

// Store persists marks in SQLite
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to the SQLite database at path and migrates the schema.
// An empty path uses a private in-memory database.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// each connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&MarkRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	if path == "" {
		log.Debug().Msg("using in-memory mark store")
	} else {
		log.Debug().Str("path", path).Msg("using SQLite mark store")
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the database
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveMarks replaces every stored mark of the frame at path
func (s *Store) SaveMarks(ctx context.Context, path string, size types.Size, marks []*mark.Mark) error {
	records := make([]MarkRecord, 0, len(marks))
	for i, m := range marks {
		rec, err := toRecord(path, i, size, m)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("frame_path = ?", path).Delete(&MarkRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("store: save %s: %w", path, err)
	}
	return nil
}

// LoadMarks returns the marks stored for path, rebuilt against size
func (s *Store) LoadMarks(ctx context.Context, path string, size types.Size) ([]*mark.Mark, error) {
	var records []MarkRecord
	err := s.db.WithContext(ctx).
		Where("frame_path = ?", path).
		Order("position").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", path, err)
	}

	marks := make([]*mark.Mark, 0, len(records))
	for _, rec := range records {
		m, err := s.fromRecord(rec, size)
		if err != nil {
			return nil, fmt.Errorf("store: load %s: %w", path, err)
		}
		marks = append(marks, m)
	}
	return marks, nil
}

// CountByClass returns how many marks each class has across all frames.
// Provisional marks are excluded.
func (s *Store) CountByClass(ctx context.Context) ([]ClassCount, error) {
	var counts []ClassCount
	err := s.db.WithContext(ctx).
		Model(&MarkRecord{}).
		Select("class_id, count(*) as count").
		Where("provisional = ?", false).
		Group("class_id").
		Order("class_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("store: count: %w", err)
	}
	return counts, nil
}

// FramePaths returns every frame path with stored marks
func (s *Store) FramePaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := s.db.WithContext(ctx).
		Model(&MarkRecord{}).
		Distinct("frame_path").
		Order("frame_path").
		Pluck("frame_path", &paths).Error
	return paths, err
}

func toRecord(path string, position int, size types.Size, m *mark.Mark) (MarkRecord, error) {
	points, err := json.Marshal(m.Points())
	if err != nil {
		return MarkRecord{}, err
	}
	outline, err := m.Outline()
	if err != nil {
		return MarkRecord{}, err
	}
	r := m.BoundingRectFor(size)
	return MarkRecord{
		ID:          m.ID.String(),
		FramePath:   path,
		Position:    position,
		ClassID:     m.ClassID,
		Name:        m.Name,
		Provisional: m.Provisional,
		Confidence:  m.Confidence,
		Points:      datatypes.JSON(points),
		X:           r.X,
		Y:           r.Y,
		Width:       r.Width,
		Height:      r.Height,
		ImageWidth:  size.Width,
		ImageHeight: size.Height,
		Outline:     outline.AsText(),
	}, nil
}

func (s *Store) fromRecord(rec MarkRecord, size types.Size) (*mark.Mark, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("mark id %q: %w", rec.ID, err)
	}
	var points []types.Point
	if err := json.Unmarshal(rec.Points, &points); err != nil {
		return nil, fmt.Errorf("mark %s points: %w", rec.ID, err)
	}

	m := mark.New(size, rec.ClassID)
	m.ID = id
	m.Name = rec.Name
	m.Provisional = rec.Provisional
	m.Confidence = rec.Confidence

	if len(points) == 4 {
		for _, p := range points {
			if err := m.AddPoint(p); err != nil {
				s.log.Warn().Err(err).Str("mark", rec.ID).Int("points", len(m.Points())).Msg("stored point rejected")
			}
		}
		if m.Balanced() {
			return m, nil
		}
	}

	// fall back to the pixel rectangle stored alongside the points
	s.log.Warn().Str("mark", rec.ID).Int("points", len(points)).Msg("rebuilding mark from stored rectangle")
	rect := types.Rect{X: rec.X, Y: rec.Y, Width: rec.Width, Height: rec.Height}
	m.ImageSize = types.Size{Width: rec.ImageWidth, Height: rec.ImageHeight}
	m.RebuildFromRect(rect)
	m.ImageSize = size
	return m, nil
}
