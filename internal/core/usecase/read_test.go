package usecase

import (
	"context"
	"testing"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
)

func TestGetByIDOwnership(t *testing.T) {
	repo := newFakeRepo()
	improved := "improved"
	resume := &domain.Resume{
		ID:           "r1",
		UserID:       "owner",
		OriginalText: "original",
		ImprovedText: &improved,
		Status:       domain.StatusCompleted,
	}
	if err := repo.Create(context.Background(), resume); err != nil {
		t.Fatalf("seed resume: %v", err)
	}
	uc := NewReadResumeUseCase(repo)

	got, err := uc.GetByID(context.Background(), &domain.User{ID: "owner"}, "r1")
	if err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if got.ID != "r1" {
		t.Fatalf("got resume %s, want r1", got.ID)
	}

	if _, err := uc.GetByID(context.Background(), &domain.User{ID: "intruder"}, "r1"); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("foreign read: err = %v, want ErrUnauthorized", err)
	}

	if _, err := uc.GetByID(context.Background(), &domain.User{ID: "owner"}, "nope"); !domain.IsKind(err, domain.ErrResumeNotFound) {
		t.Fatalf("missing read: err = %v, want ErrResumeNotFound", err)
	}
}

func TestScoresProjectionStripsText(t *testing.T) {
	improved := "improved"
	score := 80
	resume := &domain.Resume{
		ID:           "r1",
		OriginalText: "original",
		ImprovedText: &improved,
		ATSScore:     &score,
		Status:       domain.StatusCompleted,
	}

	projected := ScoresProjection(resume)
	if projected.OriginalText != "" || projected.ImprovedText != nil {
		t.Fatalf("projection leaked text fields")
	}
	if projected.ATSScore == nil || *projected.ATSScore != 80 {
		t.Fatalf("projection dropped scores")
	}
	if resume.OriginalText != "original" {
		t.Fatalf("projection mutated the source resume")
	}
}
