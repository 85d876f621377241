package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
)

// UserRepository reads accounts and owns the credit ledger. The ledger
// operations are single conditional statements; the balance floor is enforced
// by the WHERE clause, never by a read-modify-write.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, `
SELECT id, email, plan, credits, created_at FROM users WHERE id = $1
`, id)
}

func (r *UserRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.User, error) {
	return r.getUser(ctx, `
SELECT id, email, plan, credits, created_at FROM users WHERE api_key = $1
`, apiKey)
}

func (r *UserRepository) getUser(ctx context.Context, query, arg string) (*domain.User, error) {
	var user domain.User
	var plan string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &plan, &user.Credits, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrUserNotFound, "get user", errors.New("no matching account"))
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.Plan = domain.Plan(plan)
	return &user, nil
}

// TryDeduct decrements the balance by one only when it is strictly positive.
func (r *UserRepository) TryDeduct(ctx context.Context, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE users SET credits = credits - 1 WHERE id = $1 AND credits > 0
`, userID)
	if err != nil {
		return false, fmt.Errorf("deduct credit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deduct credit rows: %w", err)
	}
	return affected == 1, nil
}

func (r *UserRepository) Refund(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE users SET credits = credits + 1 WHERE id = $1
`, userID)
	if err != nil {
		return fmt.Errorf("refund credit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("refund credit rows: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrUserNotFound, "refund credit", fmt.Errorf("id=%s", userID))
	}
	return nil
}
