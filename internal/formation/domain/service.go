package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/smallbiznis/formationdesk/pkg/db/pagination"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

type Service interface {
	CreateFormation(ctx context.Context, req CreateFormationRequest) (*FormationResponse, error)
	GetFormation(ctx context.Context, id string) (*FormationResponse, error)
	ListFormations(ctx context.Context, req ListFormationsRequest) (*ListFormationsResponse, error)
	UpdateFormation(ctx context.Context, id string, req UpdateFormationRequest) (*FormationResponse, error)
	DeleteFormation(ctx context.Context, id string) error

	CreateModule(ctx context.Context, formationID string, req ModuleInput) (*ModuleResponse, error)
	GetModule(ctx context.Context, formationID, moduleID string) (*ModuleResponse, error)
	ListModules(ctx context.Context, formationID string) ([]ModuleResponse, error)
	UpdateModule(ctx context.Context, formationID, moduleID string, req UpdateModuleRequest) (*ModuleResponse, error)
	DeleteModule(ctx context.Context, formationID, moduleID string) error
	ReorderModule(ctx context.Context, formationID, moduleID string, direction Direction) ([]ModuleResponse, error)
}

type CreateFormationRequest struct {
	FormationID   string         `json:"formationId"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	Difficulty    string         `json:"difficulty"`
	Duration      int            `json:"duration"`
	ImageURL      string         `json:"imageUrl"`
	ObjectMapping map[string]any `json:"objectMapping"`
}

type UpdateFormationRequest struct {
	Name          *string         `json:"name"`
	Description   *string         `json:"description"`
	Category      *string         `json:"category"`
	Difficulty    *string         `json:"difficulty"`
	Duration      *int            `json:"duration"`
	ImageURL      *string         `json:"imageUrl"`
	ObjectMapping *map[string]any `json:"objectMapping"`
}

type ListFormationsRequest struct {
	pagination.Pagination
}

type ListFormationsResponse struct {
	Formations []FormationResponse  `json:"formations"`
	PageInfo   pagination.PageInfo `json:"pageInfo"`
}

// UpdateModuleRequest leaves nil fields untouched. Steps or Questions, when
// present, replace the module's child collection.
type UpdateModuleRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Type        *ModuleType       `json:"type"`
	ImageURL    *string           `json:"imageUrl"`
	Educational *EducationalInput `json:"educational"`
	Steps       *[]StepInput      `json:"steps"`
	Questions   *[]QuestionInput  `json:"questions"`
}

type FormationResponse struct {
	ID            string         `json:"id"`
	FormationID   string         `json:"formationId"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	Difficulty    string         `json:"difficulty"`
	Duration      int            `json:"duration"`
	ImageURL      string         `json:"imageUrl"`
	ObjectMapping map[string]any `json:"objectMapping"`
	BuildID       *string        `json:"buildId"`
	ModuleCount   int            `json:"moduleCount"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type ModuleResponse struct {
	ID          string               `json:"id"`
	FormationID string               `json:"formationId"`
	ContentID   string               `json:"contentId"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Type        ModuleType           `json:"type"`
	Order       int                  `json:"order"`
	ImageURL    string               `json:"imageUrl"`
	Educational *EducationalResponse `json:"educational,omitempty"`
	Steps       []StepResponse       `json:"steps,omitempty"`
	Questions   []QuestionResponse   `json:"questions,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

type EducationalResponse struct {
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content,omitempty"`
}

type StepResponse struct {
	ID string `json:"id"`
	StepInput
}

type QuestionResponse struct {
	ID         string           `json:"id"`
	QuestionID string           `json:"questionId"`
	Text       string           `json:"text"`
	Type       QuestionType     `json:"type"`
	Image      string           `json:"image,omitempty"`
	Options    []OptionResponse `json:"options"`
}

type OptionResponse struct {
	ID string `json:"id"`
	OptionInput
}

// ToFormationResponse renders a formation row.
func ToFormationResponse(f Formation, moduleCount int) FormationResponse {
	resp := FormationResponse{
		ID:            f.ID.String(),
		FormationID:   f.FormationID,
		Name:          f.Name,
		Description:   f.Description,
		Category:      f.Category,
		Difficulty:    f.Difficulty,
		Duration:      f.Duration,
		ImageURL:      f.ImageURL,
		ObjectMapping: map[string]any(f.ObjectMapping),
		ModuleCount:   moduleCount,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
	if resp.ObjectMapping == nil {
		resp.ObjectMapping = map[string]any{}
	}
	if !f.BuildID.IsZero() {
		id := f.BuildID.String()
		resp.BuildID = &id
	}
	return resp
}

// ToModuleResponse renders a module with its typed body.
func ToModuleResponse(m Module) ModuleResponse {
	c := m.Content
	resp := ModuleResponse{
		ID:          c.ID.String(),
		FormationID: c.FormationID.String(),
		ContentID:   c.ContentID,
		Title:       c.Title,
		Description: c.Description,
		Type:        c.Type,
		Order:       c.Order,
		ImageURL:    c.ImageURL,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if edu, ok := m.Educational(); ok {
		resp.Educational = &EducationalResponse{Title: edu.Title, Content: edu.Content}
	}
	for _, s := range m.Steps() {
		resp.Steps = append(resp.Steps, StepResponse{
			ID: s.ID.String(),
			StepInput: StepInput{
				StepID:          s.StepID,
				Title:           s.Title,
				Instruction:     s.Instruction,
				ValidationEvent: s.ValidationEvent,
				ValidationType:  s.ValidationType,
				Hint:            s.Hint,
			},
		})
	}
	for _, q := range m.Questions() {
		question := QuestionResponse{
			ID:         q.Question.ID.String(),
			QuestionID: q.Question.QuestionID,
			Text:       q.Question.Text,
			Type:       q.Question.Type,
			Image:      q.Question.ImageURL,
			Options:    make([]OptionResponse, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			question.Options = append(question.Options, OptionResponse{
				ID:          o.ID.String(),
				OptionInput: OptionInput{OptionID: o.OptionID, Text: o.Text, IsCorrect: o.IsCorrect},
			})
		}
		resp.Questions = append(resp.Questions, question)
	}
	return resp
}
