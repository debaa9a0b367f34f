package domain

import "github.com/smallbiznis/formationdesk/internal/apperr"

var (
	ErrInvalidFormation     = apperr.InvalidInput("invalid_formation", "formation id is invalid")
	ErrFormationNotFound    = apperr.NotFound("formation_not_found", "formation not found")
	ErrInvalidOrganization  = apperr.InvalidInput("invalid_organization", "organization id is invalid")
	ErrOrganizationNotFound = apperr.NotFound("organization_not_found", "organization not found")
	ErrBuildNotFound        = apperr.NotFound("build_not_found", "build not found in its container")
	ErrTrainingNotFound     = apperr.NotFound("training_not_found", "formation is not assigned to the organization")
	ErrInvalidUpload        = apperr.InvalidInput("invalid_upload", "a build file is required")
)
