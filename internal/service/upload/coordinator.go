package upload

import (
	"context"
	"path/filepath"

	"github.com/voicebridge/voicebridge/pkg/logger"
)

// Status classifies the result of an upload attempt.
type Status string

const (
	// StatusSkipped means nothing was attempted: no owner or no backend.
	StatusSkipped  Status = "skipped"
	StatusUploaded Status = "uploaded"
	StatusFailed   Status = "failed"
)

// Result is the normalized outcome of a single upload attempt.
type Result struct {
	Status   Status
	URL      string
	Key      string
	Filename string
	Err      error
}

// ObjectUploader pushes a local file into durable object storage.
type ObjectUploader interface {
	Upload(ctx context.Context, localPath, ownerID string) (url, key string, err error)
}

// Coordinator wraps the storage backend and normalizes its outcomes.
// One attempt per stop_audio event; the local file is never deleted or
// retried here.
type Coordinator struct {
	uploader ObjectUploader
	logger   logger.Logger
}

// NewCoordinator builds a Coordinator. A nil uploader disables uploads;
// every attempt then reports StatusSkipped.
func NewCoordinator(uploader ObjectUploader, log logger.Logger) *Coordinator {
	return &Coordinator{uploader: uploader, logger: log}
}

// Upload pushes localPath to storage attributed to ownerID.
func (c *Coordinator) Upload(ctx context.Context, localPath, ownerID string) Result {
	if c.uploader == nil || ownerID == "" {
		c.logger.Infof("[upload] no owner set or storage not configured, keeping %s local only", localPath)
		return Result{Status: StatusSkipped, Filename: filepath.Base(localPath)}
	}

	url, key, err := c.uploader.Upload(ctx, localPath, ownerID)
	if err != nil {
		c.logger.Errorf("[upload] upload failed for %s: %v", localPath, err)
		return Result{Status: StatusFailed, Filename: filepath.Base(localPath), Err: err}
	}

	c.logger.Infof("[upload] audio uploaded: %s", url)
	return Result{
		Status:   StatusUploaded,
		URL:      url,
		Key:      key,
		Filename: filepath.Base(localPath),
	}
}
