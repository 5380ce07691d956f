package storage

import (
	"context"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

// Store defines the interface for persistent run storage
type Store interface {
	SaveRun(ctx context.Context, run *models.TrainingRun) error
	SaveStep(ctx context.Context, step *models.TrainingStep) error

	GetRecentRuns(ctx context.Context, namespace string, limit int) ([]*models.TrainingRun, error)
	GetRunSteps(ctx context.Context, runID string) ([]*models.TrainingStep, error)

	Ping(ctx context.Context) error
	Close() error
}
