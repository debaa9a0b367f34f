// Package domain holds the formation content tree: formations, their modules
// and the guide steps or quiz questions each module carries.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	builddomain "github.com/smallbiznis/formationdesk/internal/build/domain"
	"gorm.io/datatypes"
)

type ModuleType string

const (
	ModuleTypeGuide       ModuleType = "guide"
	ModuleTypeQuiz        ModuleType = "quiz"
	ModuleTypeEducational ModuleType = "educational"
	ModuleTypeOther       ModuleType = "other"
)

func (t ModuleType) Valid() bool {
	switch t {
	case ModuleTypeGuide, ModuleTypeQuiz, ModuleTypeEducational, ModuleTypeOther:
		return true
	}
	return false
}

type QuestionType string

const (
	QuestionTypeSingle   QuestionType = "SINGLE"
	QuestionTypeMultiple QuestionType = "MULTIPLE"
)

func (t QuestionType) Valid() bool {
	return t == QuestionTypeSingle || t == QuestionTypeMultiple
}

// Formation is a course. FormationID is the portable id used by the interchange document.
type Formation struct {
	ID            snowflake.ID        `gorm:"primaryKey" json:"id"`
	FormationID   string              `gorm:"column:formation_id;type:text;not null;uniqueIndex:ux_formations_formation_id" json:"formationId"`
	Name          string              `gorm:"type:text;not null" json:"name"`
	Description   string              `gorm:"type:text" json:"description"`
	Category      string              `gorm:"type:text" json:"category"`
	Difficulty    string              `gorm:"type:text" json:"difficulty"`
	Duration      int                 `gorm:"not null;default:0" json:"duration"`
	ImageURL      string              `gorm:"column:image_url;type:text" json:"imageUrl"`
	ObjectMapping datatypes.JSONMap   `gorm:"column:object_mapping" json:"objectMapping"`
	BuildID       builddomain.BuildID `gorm:"column:build_id;type:text" json:"buildId"`
	CreatedAt     time.Time           `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time           `gorm:"not null" json:"updatedAt"`
}

func (Formation) TableName() string { return "formations" }

// FormationContent is a module. Order is dense from 1 within its formation.
type FormationContent struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	FormationID      snowflake.ID `gorm:"column:formation_id;not null;uniqueIndex:ux_contents_formation_content,priority:1;uniqueIndex:ux_contents_formation_order,priority:1" json:"formationId"`
	ContentID        string       `gorm:"column:content_id;type:text;not null;uniqueIndex:ux_contents_formation_content,priority:2" json:"contentId"`
	Title            string       `gorm:"type:text;not null" json:"title"`
	Description      string       `gorm:"type:text" json:"description"`
	Type             ModuleType   `gorm:"type:text;not null" json:"type"`
	Order            int          `gorm:"column:order_index;not null;uniqueIndex:ux_contents_formation_order,priority:2" json:"order"`
	EducationalTitle string       `gorm:"column:educational_title;type:text" json:"educationalTitle,omitempty"`
	EducationalText  string       `gorm:"column:educational_text;type:text" json:"educationalText,omitempty"`
	ImageURL         string       `gorm:"column:image_url;type:text" json:"imageUrl"`
	CreatedAt        time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updatedAt"`
}

func (FormationContent) TableName() string { return "formation_contents" }

// HasEducational reports whether the optional educational block is set.
func (c FormationContent) HasEducational() bool {
	return c.EducationalTitle != "" || c.EducationalText != ""
}

// FormationStep belongs to a guide module. Position only records creation order.
type FormationStep struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	ModuleID        snowflake.ID `gorm:"column:module_id;not null;index" json:"moduleId"`
	StepID          string       `gorm:"column:step_id;type:text;not null" json:"stepId"`
	Title           string       `gorm:"type:text" json:"title"`
	Instruction     string       `gorm:"type:text" json:"instruction"`
	ValidationEvent string       `gorm:"column:validation_event;type:text" json:"validationEvent"`
	ValidationType  string       `gorm:"column:validation_type;type:text" json:"validationType"`
	Hint            string       `gorm:"type:text" json:"hint,omitempty"`
	Position        int          `gorm:"not null" json:"-"`
}

func (FormationStep) TableName() string { return "formation_steps" }

type FormationQuestion struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ModuleID   snowflake.ID `gorm:"column:module_id;not null;index" json:"moduleId"`
	QuestionID string       `gorm:"column:question_id;type:text;not null" json:"questionId"`
	Text       string       `gorm:"type:text;not null" json:"text"`
	Type       QuestionType `gorm:"type:text;not null" json:"type"`
	ImageURL   string       `gorm:"column:image_url;type:text" json:"image,omitempty"`
	Position   int          `gorm:"not null" json:"-"`
}

func (FormationQuestion) TableName() string { return "formation_questions" }

type FormationOption struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	QuestionRef snowflake.ID `gorm:"column:question_ref;not null;index" json:"-"`
	OptionID    string       `gorm:"column:option_id;type:text;not null" json:"optionId"`
	Text        string       `gorm:"type:text;not null" json:"text"`
	IsCorrect   bool         `gorm:"column:is_correct;not null" json:"isCorrect"`
	Position    int          `gorm:"not null" json:"-"`
}

func (FormationOption) TableName() string { return "formation_options" }
