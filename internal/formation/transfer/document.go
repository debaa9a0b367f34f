// Package transfer converts a formation tree to and from the portable
// formation package document.
package transfer

import (
	"encoding/json"
	"time"

	"github.com/smallbiznis/formationdesk/internal/apperr"
	"github.com/smallbiznis/formationdesk/internal/formation/domain"
)

const DocumentVersion = 1

var (
	ErrUnsupportedVersion = apperr.InvalidInput("unsupported_document_version", "formation document version is not supported")
	ErrDuplicateModule    = apperr.InvalidInput("duplicate_module_content_id", "module content ids must be unique within the document")
	ErrInvalidModuleOrder = apperr.InvalidInput("invalid_module_order", "module orders must be unique and cover 1..N")
)

type Document struct {
	Version    int            `json:"version"`
	Formation  FormationEntry `json:"formation"`
	Modules    []ModuleEntry  `json:"modules"`
	ExportedAt time.Time      `json:"exportedAt"`
}

type FormationEntry struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	Difficulty    string         `json:"difficulty"`
	Duration      int            `json:"duration"`
	ImageURL      string         `json:"imageUrl"`
	ObjectMapping map[string]any `json:"objectMapping"`
	BuildID       *string        `json:"buildId"`
}

type ModuleEntry struct {
	ContentID       string                   `json:"contentId"`
	Order           *int                     `json:"order,omitempty"`
	Type            domain.ModuleType        `json:"type"`
	Title           string                   `json:"title"`
	Description     string                   `json:"description"`
	ImageURL        string                   `json:"imageUrl"`
	Educational     *domain.EducationalInput `json:"educational,omitempty"`
	Steps           []domain.StepInput       `json:"steps,omitempty"`
	SequenceButtons []string                 `json:"sequenceButtons,omitempty"`
	Questions       []domain.QuestionInput   `json:"questions,omitempty"`
}

// Decode parses a document. Unknown fields are ignored.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput("invalid_document", "formation document is not valid JSON"), err)
	}
	return &doc, nil
}

func (e ModuleEntry) input(order int) domain.ModuleInput {
	return domain.ModuleInput{
		ContentID:   e.ContentID,
		Title:       e.Title,
		Description: e.Description,
		Type:        e.Type,
		Order:       &order,
		ImageURL:    e.ImageURL,
		Educational: e.Educational,
		Steps:       e.Steps,
		Questions:   e.Questions,
	}
}

func moduleEntry(m domain.Module) ModuleEntry {
	c := m.Content
	order := c.Order
	entry := ModuleEntry{
		ContentID:   c.ContentID,
		Order:       &order,
		Type:        c.Type,
		Title:       c.Title,
		Description: c.Description,
		ImageURL:    c.ImageURL,
	}

	if edu, ok := m.Educational(); ok {
		entry.Educational = &domain.EducationalInput{Title: edu.Title, Content: edu.Content}
	}

	for _, s := range m.Steps() {
		entry.Steps = append(entry.Steps, domain.StepInput{
			StepID:          s.StepID,
			Title:           s.Title,
			Instruction:     s.Instruction,
			ValidationEvent: s.ValidationEvent,
			ValidationType:  s.ValidationType,
			Hint:            s.Hint,
		})
		entry.SequenceButtons = append(entry.SequenceButtons, s.ValidationEvent)
	}

	for _, q := range m.Questions() {
		question := domain.QuestionInput{
			QuestionID: q.Question.QuestionID,
			Text:       q.Question.Text,
			Type:       q.Question.Type,
			Image:      q.Question.ImageURL,
			Options:    make([]domain.OptionInput, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			question.Options = append(question.Options, domain.OptionInput{
				OptionID:  o.OptionID,
				Text:      o.Text,
				IsCorrect: o.IsCorrect,
			})
		}
		entry.Questions = append(entry.Questions, question)
	}

	return entry
}
