package ports

import (
	"context"
	"io"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
)

// UploadService is the inbound contract for accepting an upload. Both entry
// protocols yield a receipt with a resume id and a status.
type UploadService interface {
	// UploadDirect carries the file bytes in the request and blocks until
	// optimization completes or fails.
	UploadDirect(ctx context.Context, user *domain.User, filename, mimeType string, body io.Reader) (*domain.UploadReceipt, error)
	// UploadDeferred references bytes already placed in object storage and
	// returns as soon as the job is queued.
	UploadDeferred(ctx context.Context, user *domain.User, objectKey, filename string) (*domain.UploadReceipt, error)
	// PresignUpload issues a time-limited write credential so the client can
	// transfer bytes to object storage without going through the API.
	PresignUpload(ctx context.Context, user *domain.User, filename string) (*domain.PresignedUpload, error)
}

// ResumeReader is the inbound read model for resume state and results.
type ResumeReader interface {
	GetByID(ctx context.Context, user *domain.User, id string) (*domain.Resume, error)
}

// JobProcessor handles one dequeued upload job end to end.
type JobProcessor interface {
	Process(ctx context.Context, job domain.UploadJob) error
}
