package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ModuleBody is the closed set of child collections a module may carry.
// Only the types in this file implement it.
type ModuleBody interface {
	Type() ModuleType
	isModuleBody()
}

type GuideBody struct {
	Steps []FormationStep
}

type QuizBody struct {
	Questions []QuizQuestion
}

// EducationalBody mirrors the module's educational block. Content is parsed JSON.
type EducationalBody struct {
	Title   string
	Content json.RawMessage
}

type OtherBody struct{}

type QuizQuestion struct {
	Question FormationQuestion
	Options  []FormationOption
}

func (GuideBody) Type() ModuleType       { return ModuleTypeGuide }
func (QuizBody) Type() ModuleType        { return ModuleTypeQuiz }
func (EducationalBody) Type() ModuleType { return ModuleTypeEducational }
func (OtherBody) Type() ModuleType       { return ModuleTypeOther }

func (GuideBody) isModuleBody()       {}
func (QuizBody) isModuleBody()        {}
func (EducationalBody) isModuleBody() {}
func (OtherBody) isModuleBody()       {}

// Module is a persisted module row together with its typed body.
type Module struct {
	Content FormationContent
	Body    ModuleBody
}

func (m Module) Steps() []FormationStep {
	if g, ok := m.Body.(GuideBody); ok {
		return g.Steps
	}
	return nil
}

func (m Module) Questions() []QuizQuestion {
	if q, ok := m.Body.(QuizBody); ok {
		return q.Questions
	}
	return nil
}

// Educational returns the optional block that may accompany any module type.
func (m Module) Educational() (EducationalBody, bool) {
	if !m.Content.HasEducational() {
		return EducationalBody{}, false
	}
	return EducationalBody{
		Title:   m.Content.EducationalTitle,
		Content: rawOrNil(m.Content.EducationalText),
	}, true
}

type EducationalInput struct {
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

type StepInput struct {
	StepID          string `json:"stepId"`
	Title           string `json:"title"`
	Instruction     string `json:"instruction"`
	ValidationEvent string `json:"validationEvent"`
	ValidationType  string `json:"validationType"`
	Hint            string `json:"hint,omitempty"`
}

type OptionInput struct {
	OptionID  string `json:"optionId"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type QuestionInput struct {
	QuestionID string        `json:"questionId"`
	Text       string        `json:"text"`
	Type       QuestionType  `json:"type"`
	Image      string        `json:"image,omitempty"`
	Options    []OptionInput `json:"options"`
}

// ModuleInput is the writable shape of a module, shared by manual creation and import.
type ModuleInput struct {
	ContentID   string            `json:"contentId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Type        ModuleType        `json:"type"`
	Order       *int              `json:"order,omitempty"`
	ImageURL    string            `json:"imageUrl"`
	Educational *EducationalInput `json:"educational,omitempty"`
	Steps       []StepInput       `json:"steps,omitempty"`
	Questions   []QuestionInput   `json:"questions,omitempty"`
}

// Validate checks the module shape without touching the store.
func (in ModuleInput) Validate() error {
	if strings.TrimSpace(in.ContentID) == "" {
		return ErrInvalidContentID
	}
	if strings.TrimSpace(in.Title) == "" {
		return ErrInvalidTitle
	}
	if !in.Type.Valid() {
		return ErrInvalidModuleType
	}
	if len(in.Steps) > 0 && in.Type != ModuleTypeGuide {
		return ErrInvalidModuleBody
	}
	if len(in.Questions) > 0 && in.Type != ModuleTypeQuiz {
		return ErrInvalidModuleBody
	}
	if _, err := EncodeEducational(in.Educational); err != nil {
		return err
	}
	for _, step := range in.Steps {
		if strings.TrimSpace(step.StepID) == "" {
			return ErrInvalidStep
		}
	}
	return ValidateQuestions(in.Questions)
}

// ValidateQuestions requires at least one correct option per question, and
// exactly one for SINGLE questions.
func ValidateQuestions(questions []QuestionInput) error {
	for _, q := range questions {
		if strings.TrimSpace(q.QuestionID) == "" || strings.TrimSpace(q.Text) == "" {
			return ErrInvalidQuestion
		}
		if !q.Type.Valid() {
			return ErrInvalidQuestionType
		}
		correct := 0
		for _, opt := range q.Options {
			if strings.TrimSpace(opt.OptionID) == "" {
				return ErrInvalidQuestionOptions
			}
			if opt.IsCorrect {
				correct++
			}
		}
		if correct == 0 {
			return ErrInvalidQuestionOptions
		}
		if q.Type == QuestionTypeSingle && correct != 1 {
			return ErrInvalidQuestionOptions
		}
	}
	return nil
}

// Build turns a validated input into rows with fresh internal ids.
func (in ModuleInput) Build(gen *snowflake.Node, formationID snowflake.ID, order int) (Module, error) {
	text, err := EncodeEducational(in.Educational)
	if err != nil {
		return Module{}, err
	}

	content := FormationContent{
		ID:          gen.Generate(),
		FormationID: formationID,
		ContentID:   strings.TrimSpace(in.ContentID),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Type:        in.Type,
		Order:       order,
		ImageURL:    in.ImageURL,
	}
	if in.Educational != nil {
		content.EducationalTitle = in.Educational.Title
		content.EducationalText = text
	}

	return Module{Content: content, Body: in.body(gen, content)}, nil
}

func (in ModuleInput) body(gen *snowflake.Node, content FormationContent) ModuleBody {
	switch in.Type {
	case ModuleTypeGuide:
		return GuideBody{Steps: BuildSteps(gen, content.ID, in.Steps)}
	case ModuleTypeQuiz:
		return QuizBody{Questions: BuildQuestions(gen, content.ID, in.Questions)}
	case ModuleTypeEducational:
		return EducationalBody{Title: content.EducationalTitle, Content: rawOrNil(content.EducationalText)}
	default:
		return OtherBody{}
	}
}

func BuildSteps(gen *snowflake.Node, moduleID snowflake.ID, steps []StepInput) []FormationStep {
	out := make([]FormationStep, 0, len(steps))
	for i, s := range steps {
		out = append(out, FormationStep{
			ID:              gen.Generate(),
			ModuleID:        moduleID,
			StepID:          strings.TrimSpace(s.StepID),
			Title:           s.Title,
			Instruction:     s.Instruction,
			ValidationEvent: s.ValidationEvent,
			ValidationType:  s.ValidationType,
			Hint:            s.Hint,
			Position:        i,
		})
	}
	return out
}

func BuildQuestions(gen *snowflake.Node, moduleID snowflake.ID, questions []QuestionInput) []QuizQuestion {
	out := make([]QuizQuestion, 0, len(questions))
	for i, q := range questions {
		question := FormationQuestion{
			ID:         gen.Generate(),
			ModuleID:   moduleID,
			QuestionID: strings.TrimSpace(q.QuestionID),
			Text:       q.Text,
			Type:       q.Type,
			ImageURL:   q.Image,
			Position:   i,
		}
		options := make([]FormationOption, 0, len(q.Options))
		for j, opt := range q.Options {
			options = append(options, FormationOption{
				ID:          gen.Generate(),
				QuestionRef: question.ID,
				OptionID:    strings.TrimSpace(opt.OptionID),
				Text:        opt.Text,
				IsCorrect:   opt.IsCorrect,
				Position:    j,
			})
		}
		out = append(out, QuizQuestion{Question: question, Options: options})
	}
	return out
}

// AssembleBody rebuilds the typed body of a loaded module.
func AssembleBody(content FormationContent, steps []FormationStep, questions []QuizQuestion) ModuleBody {
	switch content.Type {
	case ModuleTypeGuide:
		return GuideBody{Steps: steps}
	case ModuleTypeQuiz:
		return QuizBody{Questions: questions}
	case ModuleTypeEducational:
		return EducationalBody{Title: content.EducationalTitle, Content: rawOrNil(content.EducationalText)}
	default:
		return OtherBody{}
	}
}

// EncodeEducational returns the compact stored form of the educational content.
func EncodeEducational(in *EducationalInput) (string, error) {
	if in == nil || len(bytes.TrimSpace(in.Content)) == 0 || bytes.Equal(bytes.TrimSpace(in.Content), []byte("null")) {
		return "", nil
	}
	if !json.Valid(in.Content) {
		return "", ErrInvalidEducational
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, in.Content); err != nil {
		return "", ErrInvalidEducational
	}
	return buf.String(), nil
}

func rawOrNil(text string) json.RawMessage {
	if text == "" {
		return nil
	}
	return json.RawMessage(text)
}
