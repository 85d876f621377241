package ports

import (
	"context"
	"io"
	"time"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
)

// ResumeRepository persists and reads resume state.
type ResumeRepository interface {
	Create(ctx context.Context, resume *domain.Resume) error
	GetByID(ctx context.Context, id string) (*domain.Resume, error)
	UpdateStatus(ctx context.Context, id string, status domain.ResumeStatus, errMessage string) error
	// SetExtractedText stores the extracted text and content hash on a record
	// in flight and upserts the (user, hash) index entry.
	SetExtractedText(ctx context.Context, id, text, contentHash string) error
	SaveResult(ctx context.Context, id string, result domain.OptimizationResult) error
	// ClaimQueued transitions queued -> processing with a single conditional
	// update. It reports false when the record is not in queued state, which
	// is how redelivered jobs are detected and dropped.
	ClaimQueued(ctx context.Context, id string) (bool, error)
	// FindByContentHash probes the duplicate index for (userID, contentHash).
	FindByContentHash(ctx context.Context, userID, contentHash string) (domain.DuplicateLookup, error)
}

// UserRepository reads user accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.User, error)
}

// CreditLedger is the atomic per-user credit balance. TryDeduct must be a
// single conditional statement at the storage layer, never read-then-write.
type CreditLedger interface {
	TryDeduct(ctx context.Context, userID string) (bool, error)
	Refund(ctx context.Context, userID string) error
}

// ObjectStorage stores raw upload bytes.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// PresignPut returns a time-limited URL for a direct client PUT.
	PresignPut(ctx context.Context, key string, expires time.Duration) (*domain.PresignedUpload, error)
	Bucket() string
}

// JobQueue is a FIFO queue of upload jobs. Dequeue blocks cooperatively up to
// wait and returns (nil, nil) when no job arrived in time.
type JobQueue interface {
	Enqueue(ctx context.Context, job domain.UploadJob) error
	Dequeue(ctx context.Context, wait time.Duration) (*domain.UploadJob, error)
	Close()
}

// FileParser converts raw bytes into plain text.
type FileParser interface {
	Parse(ctx context.Context, data []byte, mimeType, filename string) (string, error)
}

// ContentHasher produces a stable fingerprint of extracted text.
type ContentHasher interface {
	Fingerprint(text string) string
}

// OptimizationEngine rewrites and scores resume text.
type OptimizationEngine interface {
	Optimize(ctx context.Context, text string) (*domain.OptimizationResult, error)
}
