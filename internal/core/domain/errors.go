package domain

import (
	"errors"
	"fmt"
)

var (
	ErrResumeNotFound = errors.New("resume not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNoCredits      = errors.New("no credits")
	ErrParse          = errors.New("parse failure")
	ErrEngine         = errors.New("optimization engine failure")
	ErrTemporary      = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
