package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
	"github.com/resumepilot/resume-optimizer/internal/core/ports"
)

// ProcessUseCase runs the worker side of the pipeline: claim the queued
// record, fetch and parse the stored object, settle credits, optimize, and
// apply the terminal transition. A record never stays queued after a job for
// it has been handled, whatever went wrong.
type ProcessUseCase struct {
	repo    ports.ResumeRepository
	users   ports.UserRepository
	ledger  ports.CreditLedger
	storage ports.ObjectStorage
	parser  ports.FileParser
	hasher  ports.ContentHasher
	engine  ports.OptimizationEngine
}

func NewProcessUseCase(
	repo ports.ResumeRepository,
	users ports.UserRepository,
	ledger ports.CreditLedger,
	storage ports.ObjectStorage,
	parser ports.FileParser,
	hasher ports.ContentHasher,
	engine ports.OptimizationEngine,
) *ProcessUseCase {
	return &ProcessUseCase{
		repo:    repo,
		users:   users,
		ledger:  ledger,
		storage: storage,
		parser:  parser,
		hasher:  hasher,
		engine:  engine,
	}
}

func (uc *ProcessUseCase) Process(ctx context.Context, job domain.UploadJob) error {
	claimed, err := uc.repo.ClaimQueued(ctx, job.ResumeID)
	if err != nil {
		return fmt.Errorf("claim resume %s: %w", job.ResumeID, err)
	}
	if !claimed {
		// Redelivered or already handled elsewhere.
		slog.Warn("dropping job for resume not in queued state", "resume_id", job.ResumeID)
		return nil
	}

	text, err := uc.fetchAndParse(ctx, job)
	if err != nil {
		uc.markFailed(ctx, job.ResumeID, err)
		return err
	}

	contentHash := uc.hasher.Fingerprint(text)

	user, err := uc.users.GetByID(ctx, job.UserID)
	if err != nil {
		err = fmt.Errorf("load user %s: %w", job.UserID, err)
		uc.markFailed(ctx, job.ResumeID, err)
		return err
	}

	if !user.Unlimited() {
		if existing := uc.findDuplicateForJob(ctx, job, contentHash); existing != nil {
			uc.markFailed(ctx, job.ResumeID, fmt.Errorf("duplicate of %s", existing.ID))
			return nil
		}
	}

	deducted := false
	if !user.Unlimited() {
		ok, err := uc.ledger.TryDeduct(ctx, job.UserID)
		if err != nil {
			err = fmt.Errorf("deduct credit: %w", err)
			uc.markFailed(ctx, job.ResumeID, err)
			return err
		}
		if !ok {
			uc.markFailed(ctx, job.ResumeID, fmt.Errorf("insufficient credits"))
			return nil
		}
		deducted = true
	}

	if err := uc.repo.SetExtractedText(ctx, job.ResumeID, text, contentHash); err != nil {
		err = fmt.Errorf("store extracted text: %w", err)
		uc.markFailed(ctx, job.ResumeID, err)
		uc.refund(ctx, user, deducted)
		return err
	}

	result, err := uc.engine.Optimize(ctx, text)
	if err != nil {
		err = domain.WrapError(domain.ErrEngine, "optimize resume "+job.ResumeID, err)
		uc.markFailed(ctx, job.ResumeID, err)
		uc.refund(ctx, user, deducted)
		return err
	}

	if err := uc.repo.SaveResult(ctx, job.ResumeID, *result); err != nil {
		err = fmt.Errorf("save optimization result: %w", err)
		uc.markFailed(ctx, job.ResumeID, err)
		uc.refund(ctx, user, deducted)
		return err
	}
	if err := uc.repo.UpdateStatus(ctx, job.ResumeID, domain.StatusCompleted, ""); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	return nil
}

func (uc *ProcessUseCase) fetchAndParse(ctx context.Context, job domain.UploadJob) (string, error) {
	reader, err := uc.storage.Open(ctx, job.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("open object %s: %w", job.ObjectKey, err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", job.ObjectKey, err)
	}

	// Mime type is unknown for pre-uploaded objects; the parser falls back
	// to the filename extension.
	text, err := uc.parser.Parse(ctx, raw, "", job.Filename)
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "parse object "+job.ObjectKey, err)
	}
	return text, nil
}

func (uc *ProcessUseCase) findDuplicateForJob(ctx context.Context, job domain.UploadJob, contentHash string) *domain.Resume {
	lookup, err := uc.repo.FindByContentHash(ctx, job.UserID, contentHash)
	if err != nil {
		slog.Warn("duplicate lookup failed", "resume_id", job.ResumeID, "error", err)
		return nil
	}
	if lookup.Outcome != domain.DuplicateFound {
		return nil
	}
	// The queued record itself may already own the hash entry on redelivery.
	if lookup.Resume != nil && lookup.Resume.ID == job.ResumeID {
		return nil
	}
	return lookup.Resume
}

func (uc *ProcessUseCase) markFailed(ctx context.Context, resumeID string, cause error) {
	if err := uc.repo.UpdateStatus(ctx, resumeID, domain.StatusFailed, cause.Error()); err != nil {
		slog.Error("mark resume failed", "resume_id", resumeID, "error", err)
	}
}

func (uc *ProcessUseCase) refund(ctx context.Context, user *domain.User, deducted bool) {
	if !deducted || user.Unlimited() {
		return
	}
	if err := uc.ledger.Refund(ctx, user.ID); err != nil {
		slog.Error("refund credit failed", "user_id", user.ID, "error", err)
	}
}
