package transfer

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formationdesk/internal/apperr"
	builddomain "github.com/smallbiznis/formationdesk/internal/build/domain"
	"github.com/smallbiznis/formationdesk/internal/clock"
	"github.com/smallbiznis/formationdesk/internal/formation/domain"
	"github.com/smallbiznis/formationdesk/internal/formation/service"
	"github.com/smallbiznis/formationdesk/internal/kv"
	"github.com/smallbiznis/formationdesk/internal/observability/metrics"
	"github.com/smallbiznis/formationdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Locker  kv.Locker        `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

const (
	importLockPrefix = "formationdesk:import:"
	importLockTTL    = 30 * time.Second
)

var ErrImportInProgress = apperr.Conflict("import_in_progress", "an import of this formation is already running")

type Transcoder struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	locker  kv.Locker
	metrics *metrics.Metrics
}

func New(p Params) *Transcoder {
	locker := p.Locker
	if locker == nil {
		locker = kv.NewLocalLocker()
	}
	return &Transcoder{
		db:      p.DB,
		log:     p.Log.Named("formation.transfer"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		locker:  locker,
		metrics: p.Metrics,
	}
}

// ImportOptions.FormationID replaces the document's portable id when set.
type ImportOptions struct {
	FormationID string
}

// Export renders the formation and its modules in ascending order.
func (t *Transcoder) Export(ctx context.Context, id string) (*Document, error) {
	raw := strings.TrimSpace(id)
	formationID, err := snowflake.ParseString(raw)
	if raw == "" || err != nil {
		return nil, domain.ErrInvalidFormation
	}

	formation, err := t.repo.GetFormation(ctx, formationID)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if formation == nil {
		return nil, domain.ErrFormationNotFound
	}

	contents, err := t.repo.ListContents(ctx, formation.ID)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	modules, err := service.LoadModules(ctx, t.repo, contents)
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	doc := &Document{
		Version: DocumentVersion,
		Formation: FormationEntry{
			ID:            formation.FormationID,
			Name:          formation.Name,
			Description:   formation.Description,
			Category:      formation.Category,
			Difficulty:    formation.Difficulty,
			Duration:      formation.Duration,
			ImageURL:      formation.ImageURL,
			ObjectMapping: map[string]any(formation.ObjectMapping),
		},
		Modules:    make([]ModuleEntry, 0, len(modules)),
		ExportedAt: t.clock.Now(),
	}
	if !formation.BuildID.IsZero() {
		buildID := formation.BuildID.String()
		doc.Formation.BuildID = &buildID
	}
	for _, m := range modules {
		doc.Modules = append(doc.Modules, moduleEntry(m))
	}

	t.metrics.RecordFormationExport(ctx)
	return doc, nil
}

// Import creates the whole tree in one transaction. Nothing is written when
// any part fails.
func (t *Transcoder) Import(ctx context.Context, doc Document, opts ImportOptions) (*domain.FormationResponse, error) {
	inputs, formation, err := t.prepare(doc, opts)
	if err != nil {
		t.metrics.RecordFormationImport(ctx, "invalid")
		return nil, err
	}

	lockKey := importLockPrefix + formation.FormationID
	token, ok, err := t.locker.TryLock(ctx, lockKey, importLockTTL)
	if err != nil {
		return nil, apperr.Upstream("import_lock_failed", err)
	}
	if !ok {
		t.metrics.RecordFormationImport(ctx, "conflict")
		return nil, ErrImportInProgress
	}
	defer func() {
		if err := t.locker.Release(ctx, lockKey, token); err != nil {
			t.log.Warn("release import lock", zap.String("formation_id", formation.FormationID), zap.Error(err))
		}
	}()

	exists, err := t.repo.FormationIDExists(ctx, formation.FormationID)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if exists {
		t.metrics.RecordFormationImport(ctx, "conflict")
		return nil, domain.ErrDuplicateFormationID
	}

	err = t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := t.repo.WithTx(tx)
		if err := repo.CreateFormation(ctx, &formation); err != nil {
			return err
		}
		for _, in := range inputs {
			module, err := in.Build(t.genID, formation.ID, *in.Order)
			if err != nil {
				return err
			}
			module.Content.CreatedAt = formation.CreatedAt
			module.Content.UpdatedAt = formation.CreatedAt
			if err := repo.CreateModule(ctx, module); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err = db.Classify(err, domain.ErrDuplicateFormationID)
		if apperr.KindOf(err) == apperr.KindConflict {
			t.metrics.RecordFormationImport(ctx, "conflict")
		} else {
			t.metrics.RecordFormationImport(ctx, "failed")
		}
		return nil, err
	}

	t.metrics.RecordFormationImport(ctx, "success")
	t.log.Info("formation imported",
		zap.String("formation_id", formation.FormationID),
		zap.Int("modules", len(inputs)),
	)

	resp := domain.ToFormationResponse(formation, len(inputs))
	return &resp, nil
}

// prepare validates the document before anything is written.
func (t *Transcoder) prepare(doc Document, opts ImportOptions) ([]domain.ModuleInput, domain.Formation, error) {
	if doc.Version != 0 && doc.Version != DocumentVersion {
		return nil, domain.Formation{}, ErrUnsupportedVersion
	}

	portableID := strings.TrimSpace(opts.FormationID)
	if portableID == "" {
		portableID = strings.TrimSpace(doc.Formation.ID)
	}
	if portableID == "" {
		return nil, domain.Formation{}, domain.ErrInvalidPortableID
	}
	name := strings.TrimSpace(doc.Formation.Name)
	if name == "" {
		return nil, domain.Formation{}, domain.ErrInvalidName
	}
	if doc.Formation.Duration < 0 {
		return nil, domain.Formation{}, domain.ErrInvalidDuration
	}

	count := len(doc.Modules)
	seenContent := make(map[string]struct{}, count)
	seenOrder := make(map[int]struct{}, count)
	inputs := make([]domain.ModuleInput, 0, count)
	for i, entry := range doc.Modules {
		order := i + 1
		if entry.Order != nil {
			order = *entry.Order
		}
		if order < 1 || order > count {
			return nil, domain.Formation{}, ErrInvalidModuleOrder
		}
		if _, dup := seenOrder[order]; dup {
			return nil, domain.Formation{}, ErrInvalidModuleOrder
		}
		seenOrder[order] = struct{}{}

		contentID := strings.TrimSpace(entry.ContentID)
		if _, dup := seenContent[contentID]; dup {
			return nil, domain.Formation{}, ErrDuplicateModule
		}
		seenContent[contentID] = struct{}{}

		in := entry.input(order)
		if err := in.Validate(); err != nil {
			return nil, domain.Formation{}, err
		}
		inputs = append(inputs, in)
	}

	now := t.clock.Now()
	formation := domain.Formation{
		ID:            t.genID.Generate(),
		FormationID:   portableID,
		Name:          name,
		Description:   doc.Formation.Description,
		Category:      doc.Formation.Category,
		Difficulty:    doc.Formation.Difficulty,
		Duration:      doc.Formation.Duration,
		ImageURL:      doc.Formation.ImageURL,
		ObjectMapping: datatypes.JSONMap(doc.Formation.ObjectMapping),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if doc.Formation.BuildID != nil {
		var buildID builddomain.BuildID
		if err := buildID.Scan(*doc.Formation.BuildID); err != nil {
			return nil, domain.Formation{}, builddomain.ErrInvalidBuildIDFormat
		}
		formation.BuildID = buildID
	}

	return inputs, formation, nil
}
