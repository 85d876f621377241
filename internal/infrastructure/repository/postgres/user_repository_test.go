package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
)

func TestTryDeduct(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET credits = credits - 1 WHERE id = \$1 AND credits > 0`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.TryDeduct(context.Background(), "u1")
	if err != nil {
		t.Fatalf("TryDeduct: %v", err)
	}
	if !ok {
		t.Fatalf("expected deduction to succeed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTryDeductExhausted(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET credits = credits - 1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.TryDeduct(context.Background(), "u1")
	if err != nil {
		t.Fatalf("TryDeduct: %v", err)
	}
	if ok {
		t.Fatalf("zero balance must not deduct")
	}
}

func TestRefund(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET credits = credits \+ 1 WHERE id = \$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Refund(context.Background(), "u1"); err != nil {
		t.Fatalf("Refund: %v", err)
	}
}

func TestRefundUnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET credits = credits \+ 1`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Refund(context.Background(), "ghost")
	if !domain.IsKind(err, domain.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestGetByAPIKey(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "plan", "credits", "created_at"}).
		AddRow("u1", "u1@example.com", "free", 3, time.Now())
	mock.ExpectQuery(`SELECT id, email, plan, credits, created_at FROM users WHERE api_key = \$1`).
		WithArgs("key-123").
		WillReturnRows(rows)

	user, err := repo.GetByAPIKey(context.Background(), "key-123")
	if err != nil {
		t.Fatalf("GetByAPIKey: %v", err)
	}
	if user.ID != "u1" || user.Plan != domain.PlanFree || user.Credits != 3 {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT id, email, plan, credits, created_at FROM users WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "plan", "credits", "created_at"}))

	_, err = repo.GetByID(context.Background(), "ghost")
	if !domain.IsKind(err, domain.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}
