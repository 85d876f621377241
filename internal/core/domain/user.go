package domain

import "time"

type Plan string

const (
	PlanFree Plan = "free"
	// PlanUnlimited accounts bypass the credit ledger and the duplicate
	// short-circuit entirely.
	PlanUnlimited Plan = "unlimited"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Plan      Plan      `json:"plan"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Unlimited() bool {
	return u.Plan == PlanUnlimited
}
