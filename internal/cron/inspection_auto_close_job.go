package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/quartermaster-backend/pkg/logger"
)

const defaultAutoCloseAfter = 72 * time.Hour

// InspectionAutoCloseJobParams configure the inspection auto close job.
type InspectionAutoCloseJobParams struct {
	Logger  *logger.Logger
	Closer  inspectionCloser
	MaxAge  time.Duration
	NowFunc func() time.Time
}

type inspectionCloser interface {
	AutoClose(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewInspectionAutoCloseJob builds the job that deactivates inspections whose
// date lies more than MaxAge in the past, so a forgotten inspection does not
// block starting the next one.
func NewInspectionAutoCloseJob(params InspectionAutoCloseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Closer == nil {
		return nil, fmt.Errorf("inspection service required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultAutoCloseAfter
	}
	now := params.NowFunc
	if now == nil {
		now = time.Now
	}
	return &inspectionAutoCloseJob{
		logg:   params.Logger,
		closer: params.Closer,
		maxAge: maxAge,
		now:    now,
	}, nil
}

type inspectionAutoCloseJob struct {
	logg   *logger.Logger
	closer inspectionCloser
	maxAge time.Duration
	now    func() time.Time
}

func (j *inspectionAutoCloseJob) Name() string { return "inspection-auto-close" }

func (j *inspectionAutoCloseJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	closed, err := j.closer.AutoClose(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("inspection auto close: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff": cutoff,
		"closed": closed,
	})
	j.logg.Info(logCtx, "inspection auto close complete")
	return nil
}
