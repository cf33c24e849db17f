package api

import (
	"errors"

	"github.com/xraph/forge"

	"github.com/xraph/arbiter"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, arbiter.ErrConflictingPermissions) || errors.Is(err, arbiter.ErrRoleNotFound) ||
		errors.Is(err, arbiter.ErrVersionConflict) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, arbiter.ErrAccessDenied) {
		return forge.Forbidden(err.Error())
	}
	// Store outages fall through as-is and surface as 500s.
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, arbiter.ErrPrincipalNotFound) ||
		errors.Is(err, arbiter.ErrTenantNotFound) ||
		errors.Is(err, arbiter.ErrAssignmentNotFound) ||
		errors.Is(err, arbiter.ErrSourceNotFound)
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
