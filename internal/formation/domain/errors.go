package domain

import "github.com/smallbiznis/formationdesk/internal/apperr"

var (
	ErrInvalidFormation     = apperr.InvalidInput("invalid_formation", "formation id is invalid")
	ErrFormationNotFound    = apperr.NotFound("formation_not_found", "formation not found")
	ErrDuplicateFormationID = apperr.Conflict("duplicate_formation_id", "a formation with this portable id already exists")
	ErrInvalidPortableID    = apperr.InvalidInput("invalid_formation_id", "portable formation id is required")
	ErrInvalidName          = apperr.InvalidInput("invalid_name", "name is required")
	ErrInvalidDuration      = apperr.InvalidInput("invalid_duration", "duration must not be negative")
	ErrInvalidPageToken     = apperr.InvalidInput("invalid_page_token", "page token is invalid")

	ErrInvalidModule          = apperr.InvalidInput("invalid_module", "module id is invalid")
	ErrModuleNotFound         = apperr.NotFound("module_not_found", "module not found")
	ErrModuleNotInFormation   = apperr.InvalidInput("module_not_in_formation", "module belongs to another formation")
	ErrDuplicateContentID     = apperr.Conflict("duplicate_content_id", "a module with this content id already exists in the formation")
	ErrInvalidContentID       = apperr.InvalidInput("invalid_content_id", "content id is required")
	ErrInvalidTitle           = apperr.InvalidInput("invalid_title", "title is required")
	ErrInvalidModuleType      = apperr.InvalidInput("invalid_module_type", "type must be one of guide, quiz, educational, other")
	ErrInvalidModuleBody      = apperr.InvalidInput("invalid_module_body", "steps belong to guides and questions belong to quizzes")
	ErrInvalidOrder           = apperr.InvalidInput("invalid_order", "order must keep module positions contiguous from 1")
	ErrInvalidEducational     = apperr.InvalidInput("invalid_educational_content", "educational content must be valid JSON")
	ErrInvalidStep            = apperr.InvalidInput("invalid_step", "step id is required")
	ErrInvalidQuestion        = apperr.InvalidInput("invalid_question", "question id and text are required")
	ErrInvalidQuestionType    = apperr.InvalidInput("invalid_question_type", "question type must be SINGLE or MULTIPLE")
	ErrInvalidQuestionOptions = apperr.InvalidInput("invalid_question_options", "each question needs a correct option, exactly one for SINGLE")

	ErrInvalidDirection  = apperr.InvalidInput("invalid_direction", "direction must be up or down")
	ErrBoundaryViolation = apperr.InvalidInput("boundary_violation", "module is already at the edge of the formation")
)
