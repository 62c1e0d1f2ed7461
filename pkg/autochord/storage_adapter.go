package autochord

import (
	"errors"

	"gorm.io/gorm"

	"github.com/himanishpuri/AutoChord/pkg/autochord/storage"
	"github.com/himanishpuri/AutoChord/pkg/models"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) SaveAnalysis(a *models.Analysis) error {
	row := toRow(a)
	if err := s.db.SaveAnalysis(row); err != nil {
		return err
	}
	a.CreatedAt = row.CreatedAt
	return nil
}

func (s *storageAdapter) GetAnalysis(id string) (*models.Analysis, error) {
	row, err := s.db.GetAnalysis(id)
	if err != nil {
		return nil, notFound(err)
	}
	a := fromRow(row)
	return &a, nil
}

func (s *storageAdapter) ListAnalyses() ([]models.Analysis, error) {
	rows, err := s.db.ListAnalyses()
	if err != nil {
		return nil, err
	}

	out := make([]models.Analysis, len(rows))
	for i := range rows {
		out[i] = fromRow(&rows[i])
	}
	return out, nil
}

func (s *storageAdapter) DeleteAnalysis(id string) error {
	return notFound(s.db.DeleteAnalysis(id))
}

func (s *storageAdapter) CountAnalyses() (int64, error) {
	return s.db.CountAnalyses()
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAnalysisNotFound
	}
	return err
}

func toRow(a *models.Analysis) *storage.Analysis {
	row := &storage.Analysis{
		ID:            a.ID,
		Filename:      a.Filename,
		SourceURL:     a.SourceURL,
		DurationSec:   a.DurationSec,
		SampleRate:    a.SampleRate,
		BPM:           a.BPM,
		TempoDetected: a.TempoDetected,
		KeyTonic:      a.KeyTonic,
		KeyMode:       a.KeyMode,
		KeySignature:  a.KeySignature,
		KeyConfidence: a.KeyConfidence,
		Style:         a.Style,
		Notes:         a.Notes,
		CreatedAt:     a.CreatedAt,
	}
	for _, c := range a.Chords {
		row.Chords = append(row.Chords, storage.ChordSegment{
			Start:      c.Start,
			End:        c.End,
			Chord:      c.Chord,
			Confidence: c.Confidence,
		})
	}
	return row
}

func fromRow(row *storage.Analysis) models.Analysis {
	a := models.Analysis{
		ID:            row.ID,
		Filename:      row.Filename,
		SourceURL:     row.SourceURL,
		DurationSec:   row.DurationSec,
		SampleRate:    row.SampleRate,
		BPM:           row.BPM,
		TempoDetected: row.TempoDetected,
		KeyTonic:      row.KeyTonic,
		KeyMode:       row.KeyMode,
		KeySignature:  row.KeySignature,
		KeyConfidence: row.KeyConfidence,
		Style:         row.Style,
		Notes:         row.Notes,
		Chords:        make([]models.ChordSegment, len(row.Chords)),
		CreatedAt:     row.CreatedAt,
	}
	for i, c := range row.Chords {
		a.Chords[i] = models.ChordSegment{
			Start:      c.Start,
			End:        c.End,
			Chord:      c.Chord,
			Confidence: c.Confidence,
		}
	}
	return a
}
