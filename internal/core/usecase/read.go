package usecase

import (
	"context"
	"fmt"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
	"github.com/resumepilot/resume-optimizer/internal/core/ports"
)

// ReadResumeUseCase gates resume reads by ownership.
type ReadResumeUseCase struct {
	repo ports.ResumeRepository
}

func NewReadResumeUseCase(repo ports.ResumeRepository) *ReadResumeUseCase {
	return &ReadResumeUseCase{repo: repo}
}

func (uc *ReadResumeUseCase) GetByID(ctx context.Context, user *domain.User, id string) (*domain.Resume, error) {
	resume, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if resume.UserID != user.ID {
		return nil, domain.WrapError(domain.ErrUnauthorized, "get resume", fmt.Errorf("resume %s is not owned by caller", id))
	}
	return resume, nil
}

// ScoresProjection strips the text fields so callers not entitled to the
// rewritten content still see scores, issues and status.
func ScoresProjection(resume *domain.Resume) *domain.Resume {
	projected := *resume
	projected.OriginalText = ""
	projected.ImprovedText = nil
	return &projected
}
