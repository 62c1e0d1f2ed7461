package autochord

import (
	"context"

	"github.com/himanishpuri/AutoChord/pkg/models"
)

type Service interface {
	Analyze(ctx context.Context, audioPath, filename string) (*models.Analysis, error)
	AnalyzeYouTube(ctx context.Context, youtubeURL string) (*models.Analysis, error)
	GetAnalysis(id string) (*models.Analysis, error)
	ListAnalyses() ([]models.Analysis, error)
	DeleteAnalysis(id string) error
	CountAnalyses() (int64, error)
	Close() error
}

type Storage interface {
	SaveAnalysis(a *models.Analysis) error
	GetAnalysis(id string) (*models.Analysis, error)
	ListAnalyses() ([]models.Analysis, error)
	DeleteAnalysis(id string) error
	CountAnalyses() (int64, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
