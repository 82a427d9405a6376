package services

import (
	"errors"
	"strings"

	"gitrdun/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

// parseID rejects malformed identifiers before any store access.
func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.FromString(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, NewValidationError("invalid %s", field)
	}
	return id, nil
}

// storeError classifies a repository failure for the given resource.
func storeError(resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return NewNotFound(resource)
	case errors.Is(err, repositories.ErrDuplicate):
		return NewConflict(resource + " already exists")
	default:
		return NewInternal("failed to access "+resource, err)
	}
}

func requiredName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", NewValidationError("name is required and must be a non-empty string")
	}
	return name, nil
}
