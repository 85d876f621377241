package httpadapter

import (
	"net/http"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
)

// writeDomainError maps the error taxonomy onto HTTP. Credit exhaustion gets
// its own status and code so clients can route to a billing flow instead of
// re-authenticating.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classifyDomainError(err)
	writeError(w, status, code, err.Error())
}

func classifyDomainError(err error) (int, string) {
	switch {
	case domain.IsKind(err, domain.ErrParse):
		return http.StatusBadRequest, "parse_failed"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case domain.IsKind(err, domain.ErrNoCredits):
		return http.StatusPaymentRequired, "no_credits"
	case domain.IsKind(err, domain.ErrResumeNotFound):
		return http.StatusNotFound, "not_found"
	case domain.IsKind(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "not_found"
	case domain.IsKind(err, domain.ErrEngine):
		return http.StatusBadGateway, "engine_failed"
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable, "temporary"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
