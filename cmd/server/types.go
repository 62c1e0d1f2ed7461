package main

import (
	"time"

	"github.com/himanishpuri/AutoChord/pkg/autochord/jobs"
	"github.com/himanishpuri/AutoChord/pkg/models"
)

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

type ChordDTO struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Chord      string  `json:"chord"`
	Confidence float64 `json:"confidence"`
}

// AnalysisResponse is returned by POST / and the YouTube endpoint.
type AnalysisResponse struct {
	ID            string     `json:"id"`
	Chords        []ChordDTO `json:"chords"`
	BPM           float64    `json:"bpm"`
	KeySignature  string     `json:"key_signature"`
	KeyConfidence float64    `json:"key_confidence"`
	MusicalStyle  string     `json:"musical_style"`
	AnalysisNotes string     `json:"analysis_notes"`
}

// AnalysisDetail is returned by GET /api/analyses/:id.
type AnalysisDetail struct {
	AnalysisResponse
	Filename      string    `json:"filename"`
	SourceURL     string    `json:"source_url,omitempty"`
	DurationSec   float64   `json:"duration_sec"`
	SampleRate    int       `json:"sample_rate"`
	TempoDetected bool      `json:"tempo_detected"`
	CreatedAt     time.Time `json:"created_at"`
}

type AnalysisSummary struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	SourceURL    string    `json:"source_url,omitempty"`
	BPM          float64   `json:"bpm"`
	KeySignature string    `json:"key_signature"`
	DurationSec  float64   `json:"duration_sec"`
	CreatedAt    time.Time `json:"created_at"`
}

type ListAnalysesResponse struct {
	Analyses []AnalysisSummary `json:"analyses"`
	Count    int               `json:"count"`
}

type DeleteAnalysisResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// AnalyzeYouTubeRequest is the body of POST /api/analyses/youtube.
type AnalyzeYouTubeRequest struct {
	YouTubeURL string `json:"youtube_url" validate:"required,url"`
}

type JobResponse struct {
	JobID      string      `json:"job_id"`
	Status     jobs.Status `json:"status"`
	Filename   string      `json:"filename,omitempty"`
	AnalysisID string      `json:"analysis_id,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status        string `json:"status"`
	DatabasePath  string `json:"database_path"`
	AnalysisCount int64  `json:"analysis_count"`
	SampleRate    int    `json:"sample_rate"`
	JobsEnabled   bool   `json:"jobs_enabled"`
}

func toAnalysisResponse(a *models.Analysis) AnalysisResponse {
	chords := make([]ChordDTO, len(a.Chords))
	for i, c := range a.Chords {
		chords[i] = ChordDTO{Start: c.Start, End: c.End, Chord: c.Chord, Confidence: c.Confidence}
	}
	return AnalysisResponse{
		ID:            a.ID,
		Chords:        chords,
		BPM:           a.BPM,
		KeySignature:  a.KeySignature,
		KeyConfidence: a.KeyConfidence,
		MusicalStyle:  a.Style,
		AnalysisNotes: a.Notes,
	}
}

func toAnalysisDetail(a *models.Analysis) AnalysisDetail {
	return AnalysisDetail{
		AnalysisResponse: toAnalysisResponse(a),
		Filename:         a.Filename,
		SourceURL:        a.SourceURL,
		DurationSec:      a.DurationSec,
		SampleRate:       a.SampleRate,
		TempoDetected:    a.TempoDetected,
		CreatedAt:        a.CreatedAt,
	}
}

func toJobResponse(j *jobs.Job) JobResponse {
	return JobResponse{
		JobID:      j.ID,
		Status:     j.Status,
		Filename:   j.Filename,
		AnalysisID: j.AnalysisID,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}
