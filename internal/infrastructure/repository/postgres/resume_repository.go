package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
)

type ResumeRepository struct {
	db *sql.DB
}

func NewResumeRepository(db *sql.DB) *ResumeRepository {
	return &ResumeRepository{db: db}
}

func (r *ResumeRepository) Create(ctx context.Context, resume *domain.Resume) error {
	issuesJSON, err := json.Marshal(issuesOrEmpty(resume.Issues))
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO resumes (
	id, user_id, filename, original_text, improved_text, ats_score, keywords_score, formatting_score,
	issues, status, error_message, content_hash, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		resume.ID, resume.UserID, resume.Filename, resume.OriginalText,
		resume.ImprovedText, resume.ATSScore, resume.KeywordsScore, resume.FormattingScore,
		issuesJSON, string(resume.Status), resume.Error, nullableString(resume.ContentHash),
		resume.CreatedAt, resume.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert resume: %w", err)
	}

	if resume.ContentHash != "" {
		if err := upsertHashIndex(ctx, tx, resume.UserID, resume.ContentHash, resume.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *ResumeRepository) GetByID(ctx context.Context, id string) (*domain.Resume, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, filename, original_text, improved_text, ats_score, keywords_score, formatting_score,
	issues, status, error_message, content_hash, created_at, updated_at
FROM resumes
WHERE id = $1
`, id)
	return scanResume(row, id)
}

func (r *ResumeRepository) UpdateStatus(ctx context.Context, id string, status domain.ResumeStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE resumes
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update resume status: %w", err)
	}
	return requireRow(result, "update resume status", id)
}

func (r *ResumeRepository) SetExtractedText(ctx context.Context, id, text, contentHash string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var userID string
	err = tx.QueryRowContext(ctx, `
UPDATE resumes
SET original_text = $2, content_hash = $3, updated_at = $4
WHERE id = $1
RETURNING user_id
`, id, text, nullableString(contentHash), time.Now().UTC()).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrResumeNotFound, "set extracted text", fmt.Errorf("id=%s", id))
		}
		return fmt.Errorf("set extracted text: %w", err)
	}

	if contentHash != "" {
		if err := upsertHashIndex(ctx, tx, userID, contentHash, id); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *ResumeRepository) SaveResult(ctx context.Context, id string, result domain.OptimizationResult) error {
	issuesJSON, err := json.Marshal(issuesOrEmpty(result.Issues))
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE resumes
SET improved_text = $2, ats_score = $3, keywords_score = $4, formatting_score = $5, issues = $6, updated_at = $7
WHERE id = $1
`, id, result.ImprovedText, result.ATSScore, result.KeywordsScore, result.FormattingScore, issuesJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save optimization result: %w", err)
	}
	return requireRow(res, "save optimization result", id)
}

func (r *ResumeRepository) ClaimQueued(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE resumes
SET status = $2, updated_at = $3
WHERE id = $1 AND status = $4
`, id, string(domain.StatusProcessing), time.Now().UTC(), string(domain.StatusQueued))
	if err != nil {
		return false, fmt.Errorf("claim queued resume: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim queued resume rows: %w", err)
	}
	return affected == 1, nil
}

func (r *ResumeRepository) FindByContentHash(ctx context.Context, userID, contentHash string) (domain.DuplicateLookup, error) {
	var resumeID string
	err := r.db.QueryRowContext(ctx, `
SELECT resume_id FROM resume_hashes
WHERE user_id = $1 AND content_hash = $2
`, userID, contentHash).Scan(&resumeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DuplicateLookup{Outcome: domain.DuplicateNotFound}, nil
		}
		return domain.DuplicateLookup{}, fmt.Errorf("query hash index: %w", err)
	}

	resume, err := r.GetByID(ctx, resumeID)
	if err != nil {
		if domain.IsKind(err, domain.ErrResumeNotFound) {
			return domain.DuplicateLookup{Outcome: domain.DuplicateStaleIndex}, nil
		}
		return domain.DuplicateLookup{}, err
	}
	return domain.DuplicateLookup{Outcome: domain.DuplicateFound, Resume: resume}, nil
}

func scanResume(row *sql.Row, id string) (*domain.Resume, error) {
	var resume domain.Resume
	var improved sql.NullString
	var ats, keywords, formatting sql.NullInt64
	var issuesRaw []byte
	var status string
	var contentHash sql.NullString

	err := row.Scan(
		&resume.ID, &resume.UserID, &resume.Filename, &resume.OriginalText,
		&improved, &ats, &keywords, &formatting,
		&issuesRaw, &status, &resume.Error, &contentHash, &resume.CreatedAt, &resume.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrResumeNotFound, "get resume", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan resume: %w", err)
	}

	if err := json.Unmarshal(issuesRaw, &resume.Issues); err != nil {
		return nil, fmt.Errorf("unmarshal issues: %w", err)
	}
	resume.Status = domain.ResumeStatus(status)
	if improved.Valid {
		resume.ImprovedText = &improved.String
	}
	if ats.Valid {
		v := int(ats.Int64)
		resume.ATSScore = &v
	}
	if keywords.Valid {
		v := int(keywords.Int64)
		resume.KeywordsScore = &v
	}
	if formatting.Valid {
		v := int(formatting.Int64)
		resume.FormattingScore = &v
	}
	if contentHash.Valid {
		resume.ContentHash = contentHash.String
	}
	return &resume, nil
}

func upsertHashIndex(ctx context.Context, tx *sql.Tx, userID, contentHash, resumeID string) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO resume_hashes (user_id, content_hash, resume_id)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, content_hash) DO UPDATE SET resume_id = EXCLUDED.resume_id
`, userID, contentHash, resumeID)
	if err != nil {
		return fmt.Errorf("upsert hash index: %w", err)
	}
	return nil
}

func requireRow(result sql.Result, operation, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrResumeNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}

func issuesOrEmpty(issues []domain.Issue) []domain.Issue {
	if issues == nil {
		return []domain.Issue{}
	}
	return issues
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
