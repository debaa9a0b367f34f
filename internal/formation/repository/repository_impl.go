package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formationdesk/internal/formation/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateFormation(ctx context.Context, f *domain.Formation) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *repository) GetFormation(ctx context.Context, id snowflake.ID) (*domain.Formation, error) {
	var f domain.Formation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repository) GetFormationByPortableID(ctx context.Context, formationID string) (*domain.Formation, error) {
	var f domain.Formation
	err := r.db.WithContext(ctx).Where("formation_id = ?", formationID).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repository) FormationIDExists(ctx context.Context, formationID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Formation{}).
		Where("formation_id = ?", formationID).
		Count(&count).Error
	return count > 0, err
}

// ListFormations returns up to limit rows after afterID, ordered by id.
func (r *repository) ListFormations(ctx context.Context, afterID snowflake.ID, limit int) ([]domain.Formation, error) {
	var items []domain.Formation
	stmt := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if afterID != 0 {
		stmt = stmt.Where("id > ?", afterID)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListFormationsByIDs(ctx context.Context, ids []snowflake.ID) ([]domain.Formation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Formation
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateFormation(ctx context.Context, f *domain.Formation) error {
	return r.db.WithContext(ctx).Model(&domain.Formation{}).
		Where("id = ?", f.ID).
		Updates(map[string]any{
			"name":           f.Name,
			"description":    f.Description,
			"category":       f.Category,
			"difficulty":     f.Difficulty,
			"duration":       f.Duration,
			"image_url":      f.ImageURL,
			"object_mapping": f.ObjectMapping,
			"updated_at":     f.UpdatedAt,
		}).Error
}

// DeleteFormation removes the formation, its content subtree, its build link and
// the organization trainings pointing at it.
func (r *repository) DeleteFormation(ctx context.Context, id snowflake.ID) error {
	db := r.db.WithContext(ctx)
	stmts := []string{
		`DELETE FROM formation_options WHERE question_ref IN (
			SELECT q.id FROM formation_questions q
			JOIN formation_contents c ON c.id = q.module_id
			WHERE c.formation_id = ?)`,
		`DELETE FROM formation_questions WHERE module_id IN (SELECT id FROM formation_contents WHERE formation_id = ?)`,
		`DELETE FROM formation_steps WHERE module_id IN (SELECT id FROM formation_contents WHERE formation_id = ?)`,
		`DELETE FROM formation_contents WHERE formation_id = ?`,
		`DELETE FROM build_modules WHERE build3d_id IN (SELECT id FROM build3d WHERE formation_id = ?)`,
		`DELETE FROM build3d WHERE formation_id = ?`,
		`DELETE FROM organization_trainings WHERE formation_id = ?`,
		`DELETE FROM formations WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt, id).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateModule inserts the module row and every child of its body.
func (r *repository) CreateModule(ctx context.Context, m domain.Module) error {
	db := r.db.WithContext(ctx)
	content := m.Content
	if err := db.Create(&content).Error; err != nil {
		return err
	}

	switch body := m.Body.(type) {
	case domain.GuideBody:
		return r.insertSteps(ctx, body.Steps)
	case domain.QuizBody:
		return r.insertQuestions(ctx, body.Questions)
	}
	return nil
}

func (r *repository) GetContent(ctx context.Context, id snowflake.ID) (*domain.FormationContent, error) {
	var c domain.FormationContent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) ListContents(ctx context.Context, formationID snowflake.ID) ([]domain.FormationContent, error) {
	var items []domain.FormationContent
	err := r.db.WithContext(ctx).
		Where("formation_id = ?", formationID).
		Order("order_index ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ContentIDExists(ctx context.Context, formationID snowflake.ID, contentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FormationContent{}).
		Where("formation_id = ? AND content_id = ?", formationID, contentID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CountContents(ctx context.Context, formationID snowflake.ID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FormationContent{}).
		Where("formation_id = ?", formationID).
		Count(&count).Error
	return int(count), err
}

func (r *repository) CountContentsByFormation(ctx context.Context, formationIDs []snowflake.ID) (map[snowflake.ID]int, error) {
	out := make(map[snowflake.ID]int, len(formationIDs))
	if len(formationIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		FormationID snowflake.ID
		Total       int
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT formation_id, COUNT(*) AS total
		 FROM formation_contents
		 WHERE formation_id IN ?
		 GROUP BY formation_id`,
		formationIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.FormationID] = row.Total
	}
	return out, nil
}

func (r *repository) UpdateContent(ctx context.Context, c *domain.FormationContent) error {
	return r.db.WithContext(ctx).Model(&domain.FormationContent{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"title":             c.Title,
			"description":       c.Description,
			"type":              c.Type,
			"image_url":         c.ImageURL,
			"educational_title": c.EducationalTitle,
			"educational_text":  c.EducationalText,
			"updated_at":        c.UpdatedAt,
		}).Error
}

func (r *repository) DeleteContent(ctx context.Context, id snowflake.ID) error {
	db := r.db.WithContext(ctx)
	if err := r.ReplaceSteps(ctx, id, nil); err != nil {
		return err
	}
	if err := r.ReplaceQuestions(ctx, id, nil); err != nil {
		return err
	}
	return db.Exec(`DELETE FROM formation_contents WHERE id = ?`, id).Error
}

func (r *repository) SetContentOrder(ctx context.Context, id snowflake.ID, order int) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE formation_contents SET order_index = ? WHERE id = ?`,
		order, id,
	).Error
}

// ShiftOrders moves every order >= from by delta. The first statement parks the
// rows on negative values so the (formation_id, order_index) index never sees
// a duplicate, the second flips them back.
func (r *repository) ShiftOrders(ctx context.Context, formationID snowflake.ID, from, delta int) error {
	db := r.db.WithContext(ctx)
	if err := db.Exec(
		`UPDATE formation_contents SET order_index = -(order_index + ?)
		 WHERE formation_id = ? AND order_index >= ?`,
		delta, formationID, from,
	).Error; err != nil {
		return err
	}
	return db.Exec(
		`UPDATE formation_contents SET order_index = -order_index
		 WHERE formation_id = ? AND order_index < 0`,
		formationID,
	).Error
}

func (r *repository) ListSteps(ctx context.Context, moduleIDs []snowflake.ID) ([]domain.FormationStep, error) {
	if len(moduleIDs) == 0 {
		return nil, nil
	}
	var items []domain.FormationStep
	err := r.db.WithContext(ctx).
		Where("module_id IN ?", moduleIDs).
		Order("module_id ASC, position ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ReplaceSteps(ctx context.Context, moduleID snowflake.ID, steps []domain.FormationStep) error {
	if err := r.db.WithContext(ctx).Exec(`DELETE FROM formation_steps WHERE module_id = ?`, moduleID).Error; err != nil {
		return err
	}
	return r.insertSteps(ctx, steps)
}

func (r *repository) ListQuestions(ctx context.Context, moduleIDs []snowflake.ID) ([]domain.QuizQuestion, error) {
	if len(moduleIDs) == 0 {
		return nil, nil
	}

	db := r.db.WithContext(ctx)
	var questions []domain.FormationQuestion
	if err := db.Where("module_id IN ?", moduleIDs).
		Order("module_id ASC, position ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, nil
	}

	ids := make([]snowflake.ID, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}

	var options []domain.FormationOption
	if err := db.Where("question_ref IN ?", ids).
		Order("question_ref ASC, position ASC").
		Find(&options).Error; err != nil {
		return nil, err
	}

	byQuestion := make(map[snowflake.ID][]domain.FormationOption, len(questions))
	for _, opt := range options {
		byQuestion[opt.QuestionRef] = append(byQuestion[opt.QuestionRef], opt)
	}

	out := make([]domain.QuizQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, domain.QuizQuestion{Question: q, Options: byQuestion[q.ID]})
	}
	return out, nil
}

func (r *repository) ReplaceQuestions(ctx context.Context, moduleID snowflake.ID, questions []domain.QuizQuestion) error {
	db := r.db.WithContext(ctx)
	if err := db.Exec(
		`DELETE FROM formation_options WHERE question_ref IN (SELECT id FROM formation_questions WHERE module_id = ?)`,
		moduleID,
	).Error; err != nil {
		return err
	}
	if err := db.Exec(`DELETE FROM formation_questions WHERE module_id = ?`, moduleID).Error; err != nil {
		return err
	}
	return r.insertQuestions(ctx, questions)
}

func (r *repository) insertSteps(ctx context.Context, steps []domain.FormationStep) error {
	if len(steps) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&steps).Error
}

func (r *repository) insertQuestions(ctx context.Context, questions []domain.QuizQuestion) error {
	if len(questions) == 0 {
		return nil
	}

	db := r.db.WithContext(ctx)
	rows := make([]domain.FormationQuestion, 0, len(questions))
	var options []domain.FormationOption
	for _, q := range questions {
		rows = append(rows, q.Question)
		options = append(options, q.Options...)
	}

	if err := db.Create(&rows).Error; err != nil {
		return err
	}
	if len(options) == 0 {
		return nil
	}
	return db.Create(&options).Error
}
