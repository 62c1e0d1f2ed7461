package main

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/himanishpuri/AutoChord/pkg/autochord"
	"github.com/himanishpuri/AutoChord/pkg/autochord/audio"
	"github.com/himanishpuri/AutoChord/pkg/autochord/jobs"
	"github.com/himanishpuri/AutoChord/pkg/utils"
)

const (
	msgInvalidFileType = "Invalid file type. Please upload MP3 or WAV."
	analyzeTimeout     = 5 * time.Minute
)

// JobQueue is the background analysis queue.
type JobQueue interface {
	Enqueue(ctx context.Context, audioPath, filename string) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	count, err := s.service.CountAnalyses()
	if err != nil {
		s.log.Errorf("Failed to count analyses: %v", err)
		return respondError(c, fiber.StatusInternalServerError, "Failed to retrieve metrics")
	}

	return c.JSON(MetricsResponse{
		Status:        "ok",
		DatabasePath:  s.config.DBPath,
		AnalysisCount: count,
		SampleRate:    s.config.SampleRate,
		JobsEnabled:   s.jobs != nil,
	})
}

// spoolUpload validates the "file" field and writes it to the temp dir.
// On success the caller owns the returned path.
func (s *Server) spoolUpload(c *fiber.Ctx) (string, *multipart.FileHeader, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusUnprocessableEntity, "Field 'file' is required")
	}
	if !audio.IsSupportedContentType(header.Header.Get(fiber.HeaderContentType)) {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, msgInvalidFileType)
	}

	src, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	path := utils.SpoolPath(s.config.TempDir, header.Filename)
	if _, err := utils.WriteFile(path, src); err != nil {
		utils.DeleteFile(path)
		return "", nil, fmt.Errorf("saving upload: %w", err)
	}
	return path, header, nil
}

func (s *Server) uploadError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return respondError(c, fe.Code, fe.Message)
	}
	s.log.Errorf("Failed to spool upload: %v", err)
	return respondError(c, fiber.StatusInternalServerError, "Error processing file: "+err.Error())
}

// handleAnalyze handles POST / (multipart field "file")
func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	path, header, err := s.spoolUpload(c)
	if err != nil {
		return s.uploadError(c, err)
	}
	defer utils.DeleteFile(path)

	ctx, cancel := context.WithTimeout(c.UserContext(), analyzeTimeout)
	defer cancel()

	analysis, err := s.service.Analyze(ctx, path, header.Filename)
	if err != nil {
		s.log.Errorf("Failed to analyze %s: %v", header.Filename, err)
		return respondError(c, fiber.StatusInternalServerError, "Error processing file: "+err.Error())
	}

	return c.JSON(toAnalysisResponse(analysis))
}

// handleAnalyzeYouTube handles POST /api/analyses/youtube
func (s *Server) handleAnalyzeYouTube(c *fiber.Ctx) error {
	var req AnalyzeYouTubeRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "youtube_url must be a valid URL")
	}
	if !utils.IsYouTubeURL(req.YouTubeURL) {
		return respondError(c, fiber.StatusBadRequest, utils.ErrNotYouTubeURL.Error())
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), analyzeTimeout)
	defer cancel()

	s.log.Infof("Analyzing YouTube audio: %s", req.YouTubeURL)
	analysis, err := s.service.AnalyzeYouTube(ctx, req.YouTubeURL)
	if err != nil {
		s.log.Errorf("Failed to analyze %s: %v", req.YouTubeURL, err)
		return respondError(c, fiber.StatusInternalServerError, "Error processing file: "+err.Error())
	}

	return c.JSON(toAnalysisResponse(analysis))
}

// handleListAnalyses handles GET /api/analyses
func (s *Server) handleListAnalyses(c *fiber.Ctx) error {
	list, err := s.service.ListAnalyses()
	if err != nil {
		s.log.Errorf("Failed to list analyses: %v", err)
		return respondError(c, fiber.StatusInternalServerError, "Failed to retrieve analyses")
	}

	out := make([]AnalysisSummary, len(list))
	for i, a := range list {
		out[i] = AnalysisSummary{
			ID:           a.ID,
			Filename:     a.Filename,
			SourceURL:    a.SourceURL,
			BPM:          a.BPM,
			KeySignature: a.KeySignature,
			DurationSec:  a.DurationSec,
			CreatedAt:    a.CreatedAt,
		}
	}
	return c.JSON(ListAnalysesResponse{Analyses: out, Count: len(out)})
}

// handleGetAnalysis handles GET /api/analyses/:id
func (s *Server) handleGetAnalysis(c *fiber.Ctx) error {
	id := c.Params("id")
	analysis, err := s.service.GetAnalysis(id)
	if err != nil {
		if errors.Is(err, autochord.ErrAnalysisNotFound) {
			return respondError(c, fiber.StatusNotFound, fmt.Sprintf("Analysis %s not found", id))
		}
		s.log.Errorf("Failed to get analysis %s: %v", id, err)
		return respondError(c, fiber.StatusInternalServerError, "Failed to retrieve analysis")
	}
	return c.JSON(toAnalysisDetail(analysis))
}

// handleDeleteAnalysis handles DELETE /api/analyses/:id
func (s *Server) handleDeleteAnalysis(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.service.DeleteAnalysis(id); err != nil {
		if errors.Is(err, autochord.ErrAnalysisNotFound) {
			return respondError(c, fiber.StatusNotFound, fmt.Sprintf("Analysis %s not found", id))
		}
		s.log.Errorf("Failed to delete analysis %s: %v", id, err)
		return respondError(c, fiber.StatusInternalServerError, "Failed to delete analysis")
	}

	s.log.Infof("Deleted analysis %s", id)
	return c.JSON(DeleteAnalysisResponse{Message: "Analysis deleted successfully", ID: id})
}

// handleCreateJob handles POST /api/jobs (multipart field "file")
func (s *Server) handleCreateJob(c *fiber.Ctx) error {
	if s.jobs == nil {
		return respondError(c, fiber.StatusServiceUnavailable, "Background jobs are not enabled")
	}

	path, header, err := s.spoolUpload(c)
	if err != nil {
		return s.uploadError(c, err)
	}

	job, err := s.jobs.Enqueue(c.UserContext(), path, header.Filename)
	if err != nil {
		utils.DeleteFile(path)
		s.log.Errorf("Failed to queue %s: %v", header.Filename, err)
		return respondError(c, fiber.StatusInternalServerError, "Failed to queue analysis")
	}

	s.log.Infof("Queued analysis job %s for %s", job.ID, header.Filename)
	return c.Status(fiber.StatusAccepted).JSON(toJobResponse(job))
}

// handleGetJob handles GET /api/jobs/:id
func (s *Server) handleGetJob(c *fiber.Ctx) error {
	if s.jobs == nil {
		return respondError(c, fiber.StatusServiceUnavailable, "Background jobs are not enabled")
	}

	id := c.Params("id")
	job, err := s.jobs.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return respondError(c, fiber.StatusNotFound, fmt.Sprintf("Job %s not found", id))
		}
		s.log.Errorf("Failed to get job %s: %v", id, err)
		return respondError(c, fiber.StatusInternalServerError, "Failed to retrieve job")
	}
	return c.JSON(toJobResponse(job))
}
