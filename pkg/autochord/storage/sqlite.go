//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "autochord.sqlite3"
const errDBClientNil = "db client is nil"

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Analysis struct {
	ID            string         `gorm:"primaryKey;type:varchar(36)"`
	Filename      string         `gorm:"index:idx_analysis_filename" json:"filename"`
	SourceURL     string         `json:"source_url"`
	DurationSec   float64        `json:"duration_sec"`
	SampleRate    int            `json:"sample_rate"`
	BPM           float64        `json:"bpm"`
	TempoDetected bool           `json:"tempo_detected"`
	KeyTonic      string         `gorm:"index:idx_analysis_key,priority:1" json:"key_tonic"`
	KeyMode       string         `gorm:"index:idx_analysis_key,priority:2" json:"key_mode"`
	KeySignature  string         `json:"key_signature"`
	KeyConfidence float64        `json:"key_confidence"`
	Style         string         `json:"style"`
	Notes         string         `json:"notes"`
	Chords        []ChordSegment `gorm:"foreignKey:AnalysisID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time      `gorm:"index:idx_analysis_created"`
}

type ChordSegment struct {
	ID         uint    `gorm:"primaryKey;autoIncrement"`
	AnalysisID string  `gorm:"type:varchar(36);index:idx_segment_analysis" json:"analysis_id"`
	Ordinal    int     `json:"ordinal"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Chord      string  `json:"chord"`
	Confidence float64 `json:"confidence"`
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Analysis{}, &ChordSegment{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SaveAnalysis inserts an analysis and its chord timeline in one transaction.
// Segment ordinals are assigned from their position in a.Chords.
func (c *DBClient) SaveAnalysis(a *Analysis) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if a.ID == "" {
		return errors.New("analysis id is empty")
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		chords := a.Chords
		a.Chords = nil
		defer func() { a.Chords = chords }()

		if err := tx.Create(a).Error; err != nil {
			return fmt.Errorf("creating analysis: %w", err)
		}
		if len(chords) == 0 {
			return nil
		}

		for i := range chords {
			chords[i].AnalysisID = a.ID
			chords[i].Ordinal = i
		}
		if err := tx.CreateInBatches(&chords, 500).Error; err != nil {
			return fmt.Errorf("creating chord segments: %w", err)
		}
		return nil
	})
}

// GetAnalysis loads one analysis with its chords in timeline order.
func (c *DBClient) GetAnalysis(id string) (*Analysis, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var a Analysis
	err := c.DB.Preload("Chords", func(db *gorm.DB) *gorm.DB {
		return db.Order("ordinal ASC")
	}).Where("id = ?", id).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAnalyses returns every analysis, newest first, without chords.
func (c *DBClient) ListAnalyses() ([]Analysis, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var out []Analysis
	if err := c.DB.Order("created_at DESC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAnalysis removes an analysis and its segments. It returns
// gorm.ErrRecordNotFound when no analysis has the id.
func (c *DBClient) DeleteAnalysis(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("analysis_id = ?", id).Delete(&ChordSegment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Analysis{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (c *DBClient) CountAnalyses() (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var count int64
	if err := c.DB.Model(&Analysis{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
