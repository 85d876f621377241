package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
	"github.com/resumepilot/resume-optimizer/internal/core/ports"
)

// UploadUseCase is the single synchronization point between "I uploaded a
// file" and the processing pipeline. The direct path optimizes inline; the
// deferred path creates a queued record and hands off to the worker.
type UploadUseCase struct {
	repo          ports.ResumeRepository
	ledger        ports.CreditLedger
	storage       ports.ObjectStorage
	queue         ports.JobQueue
	parser        ports.FileParser
	hasher        ports.ContentHasher
	engine        ports.OptimizationEngine
	engineTimeout time.Duration
	presignTTL    time.Duration
}

func NewUploadUseCase(
	repo ports.ResumeRepository,
	ledger ports.CreditLedger,
	storage ports.ObjectStorage,
	queue ports.JobQueue,
	parser ports.FileParser,
	hasher ports.ContentHasher,
	engine ports.OptimizationEngine,
	engineTimeout time.Duration,
	presignTTL time.Duration,
) *UploadUseCase {
	if engineTimeout <= 0 {
		engineTimeout = 2 * time.Minute
	}
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &UploadUseCase{
		repo:          repo,
		ledger:        ledger,
		storage:       storage,
		queue:         queue,
		parser:        parser,
		hasher:        hasher,
		engine:        engine,
		engineTimeout: engineTimeout,
		presignTTL:    presignTTL,
	}
}

func (uc *UploadUseCase) UploadDirect(
	ctx context.Context,
	user *domain.User,
	filename, mimeType string,
	body io.Reader,
) (*domain.UploadReceipt, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload body", err)
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload body", errors.New("empty file"))
	}

	text, err := uc.parser.Parse(ctx, raw, mimeType, filename)
	if err != nil {
		return nil, domain.WrapError(domain.ErrParse, "parse upload", err)
	}

	contentHash := uc.hasher.Fingerprint(text)

	if !user.Unlimited() {
		if existing := uc.findDuplicate(ctx, user.ID, contentHash); existing != nil {
			return &domain.UploadReceipt{
				ResumeID:  existing.ID,
				Status:    existing.Status,
				Duplicate: true,
				Resume:    existing,
			}, nil
		}
	}

	deducted, err := uc.deduct(ctx, user)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	resume := &domain.Resume{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Filename:     filename,
		OriginalText: text,
		Status:       domain.StatusProcessing,
		ContentHash:  contentHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.repo.Create(ctx, resume); err != nil {
		uc.refund(ctx, user, deducted)
		return nil, fmt.Errorf("create resume record: %w", err)
	}

	// Archival only: processing uses the in-request bytes.
	archiveKey := fmt.Sprintf("uploads/%s/%s_%s", user.ID, resume.ID, sanitizeFilename(filename))
	if err := uc.storage.Save(ctx, archiveKey, bytes.NewReader(raw)); err != nil {
		slog.Warn("archive upload bytes failed", "resume_id", resume.ID, "error", err)
	}

	optimizeCtx, cancel := context.WithTimeout(ctx, uc.engineTimeout)
	defer cancel()

	result, err := uc.engine.Optimize(optimizeCtx, text)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, resume.ID, domain.StatusFailed, err.Error()); failErr != nil {
			slog.Error("mark resume failed", "resume_id", resume.ID, "error", failErr)
		}
		uc.refund(ctx, user, deducted)
		return nil, domain.WrapError(domain.ErrEngine, "optimize resume "+resume.ID, err)
	}

	if err := uc.repo.SaveResult(ctx, resume.ID, *result); err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, resume.ID, domain.StatusFailed, err.Error()); failErr != nil {
			slog.Error("mark resume failed", "resume_id", resume.ID, "error", failErr)
		}
		uc.refund(ctx, user, deducted)
		return nil, fmt.Errorf("save optimization result: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, resume.ID, domain.StatusCompleted, ""); err != nil {
		return nil, fmt.Errorf("set status=completed: %w", err)
	}

	applyResult(resume, *result)
	resume.Status = domain.StatusCompleted
	return &domain.UploadReceipt{
		ResumeID: resume.ID,
		Status:   domain.StatusCompleted,
		Resume:   resume,
	}, nil
}

func (uc *UploadUseCase) UploadDeferred(
	ctx context.Context,
	user *domain.User,
	objectKey, filename string,
) (*domain.UploadReceipt, error) {
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "deferred upload", errors.New("object_key is required"))
	}
	// Clients may only reference objects under their own prefix.
	if !strings.HasPrefix(objectKey, "uploads/"+user.ID+"/") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "deferred upload", fmt.Errorf("object key outside user prefix: %s", objectKey))
	}

	now := time.Now().UTC()
	resume := &domain.Resume{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Filename:  filename,
		Status:    domain.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, resume); err != nil {
		return nil, fmt.Errorf("create resume record: %w", err)
	}

	job := domain.UploadJob{
		ResumeID:   resume.ID,
		Bucket:     uc.storage.Bucket(),
		ObjectKey:  objectKey,
		Filename:   filename,
		UserID:     user.ID,
		EnqueuedAt: now,
	}
	if err := uc.queue.Enqueue(ctx, job); err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, resume.ID, domain.StatusFailed, "enqueue failed: "+err.Error()); failErr != nil {
			slog.Error("mark resume failed", "resume_id", resume.ID, "error", failErr)
		}
		return nil, fmt.Errorf("enqueue upload job: %w", err)
	}

	return &domain.UploadReceipt{
		ResumeID: resume.ID,
		Status:   domain.StatusQueued,
	}, nil
}

func (uc *UploadUseCase) PresignUpload(
	ctx context.Context,
	user *domain.User,
	filename string,
) (*domain.PresignedUpload, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "presign upload", errors.New("filename is required"))
	}
	key := fmt.Sprintf("uploads/%s/%s_%s", user.ID, uuid.NewString(), sanitizeFilename(filename))
	presigned, err := uc.storage.PresignPut(ctx, key, uc.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}
	return presigned, nil
}

// findDuplicate returns the prior resume for an identical submission, or nil
// when the upload should proceed as fresh. Lookup failures degrade to "not a
// duplicate" so that hashing infrastructure can never block an upload.
func (uc *UploadUseCase) findDuplicate(ctx context.Context, userID, contentHash string) *domain.Resume {
	lookup, err := uc.repo.FindByContentHash(ctx, userID, contentHash)
	if err != nil {
		slog.Warn("duplicate lookup failed", "user_id", userID, "error", err)
		return nil
	}
	switch lookup.Outcome {
	case domain.DuplicateFound:
		return lookup.Resume
	case domain.DuplicateStaleIndex:
		slog.Info("stale hash index entry, treating as fresh upload", "user_id", userID)
		return nil
	default:
		return nil
	}
}

func (uc *UploadUseCase) deduct(ctx context.Context, user *domain.User) (bool, error) {
	if user.Unlimited() {
		return false, nil
	}
	ok, err := uc.ledger.TryDeduct(ctx, user.ID)
	if err != nil {
		return false, fmt.Errorf("deduct credit: %w", err)
	}
	if !ok {
		return false, domain.WrapError(domain.ErrNoCredits, "deduct credit", fmt.Errorf("user %s has no credits", user.ID))
	}
	return true, nil
}

func (uc *UploadUseCase) refund(ctx context.Context, user *domain.User, deducted bool) {
	if !deducted {
		return
	}
	if err := uc.ledger.Refund(ctx, user.ID); err != nil {
		slog.Error("refund credit failed", "user_id", user.ID, "error", err)
	}
}

func applyResult(resume *domain.Resume, result domain.OptimizationResult) {
	improved := result.ImprovedText
	ats := result.ATSScore
	keywords := result.KeywordsScore
	formatting := result.FormattingScore
	resume.ImprovedText = &improved
	resume.ATSScore = &ats
	resume.KeywordsScore = &keywords
	resume.FormattingScore = &formatting
	resume.Issues = result.Issues
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "resume.bin"
	}
	return base
}
