package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
)

func newMock(t *testing.T) (*ResumeRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewResumeRepository(db), mock
}

func resumeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "filename", "original_text", "improved_text",
		"ats_score", "keywords_score", "formatting_score",
		"issues", "status", "error_message", "content_hash", "created_at", "updated_at",
	})
}

func TestClaimQueued(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`UPDATE resumes\s+SET status = \$2, updated_at = \$3\s+WHERE id = \$1 AND status = \$4`).
		WithArgs("r1", "processing", sqlmock.AnyArg(), "queued").
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.ClaimQueued(context.Background(), "r1")
	if err != nil {
		t.Fatalf("ClaimQueued: %v", err)
	}
	if !claimed {
		t.Fatalf("expected claim to succeed")
	}
}

func TestClaimQueuedAlreadyTaken(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`UPDATE resumes`).
		WithArgs("r1", "processing", sqlmock.AnyArg(), "queued").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.ClaimQueued(context.Background(), "r1")
	if err != nil {
		t.Fatalf("ClaimQueued: %v", err)
	}
	if claimed {
		t.Fatalf("non-queued record must not be claimable")
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`UPDATE resumes`).
		WithArgs("ghost", "failed", "boom", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "ghost", domain.StatusFailed, "boom")
	if !domain.IsKind(err, domain.ErrResumeNotFound) {
		t.Fatalf("err = %v, want ErrResumeNotFound", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock := newMock(t)

	now := time.Now().UTC()
	rows := resumeRows().AddRow(
		"r1", "u1", "resume.pdf", "original", "improved",
		80, 70, 90,
		[]byte(`[{"severity":"warning","message":"add metrics"}]`),
		"completed", "", "hash-1", now, now,
	)
	mock.ExpectQuery(`SELECT id, user_id, filename`).WithArgs("r1").WillReturnRows(rows)

	resume, err := repo.GetByID(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if resume.Status != domain.StatusCompleted {
		t.Fatalf("status = %s", resume.Status)
	}
	if resume.ImprovedText == nil || *resume.ImprovedText != "improved" {
		t.Fatalf("improved text not scanned")
	}
	if resume.ATSScore == nil || *resume.ATSScore != 80 {
		t.Fatalf("ats score not scanned")
	}
	if len(resume.Issues) != 1 || resume.Issues[0].Message != "add metrics" {
		t.Fatalf("issues not scanned: %+v", resume.Issues)
	}
	if resume.ContentHash != "hash-1" {
		t.Fatalf("content hash not scanned")
	}
}

func TestGetByIDNullColumns(t *testing.T) {
	repo, mock := newMock(t)

	now := time.Now().UTC()
	rows := resumeRows().AddRow(
		"r1", "u1", "resume.pdf", "", nil,
		nil, nil, nil,
		[]byte(`[]`), "queued", "", nil, now, now,
	)
	mock.ExpectQuery(`SELECT id, user_id, filename`).WithArgs("r1").WillReturnRows(rows)

	resume, err := repo.GetByID(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if resume.ImprovedText != nil || resume.ATSScore != nil || resume.ContentHash != "" {
		t.Fatalf("null columns must stay unset: %+v", resume)
	}
}

func TestGetByIDNotFoundResume(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT id, user_id, filename`).WithArgs("ghost").WillReturnRows(resumeRows())

	_, err := repo.GetByID(context.Background(), "ghost")
	if !domain.IsKind(err, domain.ErrResumeNotFound) {
		t.Fatalf("err = %v, want ErrResumeNotFound", err)
	}
}

func TestFindByContentHashNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT resume_id FROM resume_hashes`).
		WithArgs("u1", "hash-1").
		WillReturnRows(sqlmock.NewRows([]string{"resume_id"}))

	lookup, err := repo.FindByContentHash(context.Background(), "u1", "hash-1")
	if err != nil {
		t.Fatalf("FindByContentHash: %v", err)
	}
	if lookup.Outcome != domain.DuplicateNotFound {
		t.Fatalf("outcome = %d, want not found", lookup.Outcome)
	}
}

func TestFindByContentHashStaleIndex(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT resume_id FROM resume_hashes`).
		WithArgs("u1", "hash-1").
		WillReturnRows(sqlmock.NewRows([]string{"resume_id"}).AddRow("r-deleted"))
	mock.ExpectQuery(`SELECT id, user_id, filename`).
		WithArgs("r-deleted").
		WillReturnRows(resumeRows())

	lookup, err := repo.FindByContentHash(context.Background(), "u1", "hash-1")
	if err != nil {
		t.Fatalf("FindByContentHash: %v", err)
	}
	if lookup.Outcome != domain.DuplicateStaleIndex {
		t.Fatalf("outcome = %d, want stale index", lookup.Outcome)
	}
}

func TestFindByContentHashFound(t *testing.T) {
	repo, mock := newMock(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT resume_id FROM resume_hashes`).
		WithArgs("u1", "hash-1").
		WillReturnRows(sqlmock.NewRows([]string{"resume_id"}).AddRow("r1"))
	mock.ExpectQuery(`SELECT id, user_id, filename`).
		WithArgs("r1").
		WillReturnRows(resumeRows().AddRow(
			"r1", "u1", "resume.pdf", "original", nil,
			nil, nil, nil, []byte(`[]`), "completed", "", "hash-1", now, now,
		))

	lookup, err := repo.FindByContentHash(context.Background(), "u1", "hash-1")
	if err != nil {
		t.Fatalf("FindByContentHash: %v", err)
	}
	if lookup.Outcome != domain.DuplicateFound || lookup.Resume == nil || lookup.Resume.ID != "r1" {
		t.Fatalf("unexpected lookup: %+v", lookup)
	}
}

func TestCreateWithHashIndex(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO resumes`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO resume_hashes`).
		WithArgs("u1", "hash-1", "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	now := time.Now().UTC()
	err := repo.Create(context.Background(), &domain.Resume{
		ID:          "r1",
		UserID:      "u1",
		Filename:    "resume.pdf",
		Status:      domain.StatusProcessing,
		ContentHash: "hash-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateWithoutHashSkipsIndex(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO resumes`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	now := time.Now().UTC()
	err := repo.Create(context.Background(), &domain.Resume{
		ID:        "r1",
		UserID:    "u1",
		Filename:  "resume.pdf",
		Status:    domain.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetExtractedText(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE resumes\s+SET original_text = \$2, content_hash = \$3`).
		WithArgs("r1", "text", "hash-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectExec(`INSERT INTO resume_hashes`).
		WithArgs("u1", "hash-1", "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SetExtractedText(context.Background(), "r1", "text", "hash-1"); err != nil {
		t.Fatalf("SetExtractedText: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetExtractedTextNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE resumes\s+SET original_text`).
		WithArgs("ghost", "text", "hash-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectRollback()

	err := repo.SetExtractedText(context.Background(), "ghost", "text", "hash-1")
	if !domain.IsKind(err, domain.ErrResumeNotFound) {
		t.Fatalf("err = %v, want ErrResumeNotFound", err)
	}
}

func TestSaveResult(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`UPDATE resumes\s+SET improved_text = \$2`).
		WithArgs("r1", "improved", 80, 70, 90, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveResult(context.Background(), "r1", domain.OptimizationResult{
		ImprovedText:    "improved",
		ATSScore:        80,
		KeywordsScore:   70,
		FormattingScore: 90,
	})
	if err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
}
