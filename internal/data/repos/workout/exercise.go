package workout

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

type ExerciseFilter struct {
	MuscleGroup string
	// Equipment restricts results to exercises needing one of these (or none).
	Equipment []string
	Limit     int
}

type ExerciseLibraryRepo interface {
	// EnsureByNames returns library ids keyed by lowercased name, inserting
	// rows for names not seen before.
	EnsureByNames(dbc dbctx.Context, names []string) (map[string]uuid.UUID, error)
	FindByNames(dbc dbctx.Context, names []string) ([]*types.ExerciseLibrary, error)
	// ListPopular filters the library and ranks by popularity, then name.
	ListPopular(dbc dbctx.Context, f ExerciseFilter) ([]*types.ExerciseLibrary, error)
	IncrementPopularity(dbc dbctx.Context, ids []uuid.UUID) error
}

type exerciseLibraryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExerciseLibraryRepo(db *gorm.DB, baseLog *logger.Logger) ExerciseLibraryRepo {
	return &exerciseLibraryRepo{db: db, log: baseLog.With("repo", "ExerciseLibraryRepo")}
}

func (r *exerciseLibraryRepo) FindByNames(dbc dbctx.Context, names []string) ([]*types.ExerciseLibrary, error) {
	keys := normalizeNames(names)
	var out []*types.ExerciseLibrary
	if len(keys) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("LOWER(name) IN ?", keys).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *exerciseLibraryRepo) EnsureByNames(dbc dbctx.Context, names []string) (map[string]uuid.UUID, error) {
	out := map[string]uuid.UUID{}
	if len(normalizeNames(names)) == 0 {
		return out, nil
	}
	existing, err := r.FindByNames(dbc, names)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		out[strings.ToLower(e.Name)] = e.ID
	}
	var missing []*types.ExerciseLibrary
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		if _, ok := out[key]; ok {
			continue
		}
		missing = append(missing, &types.ExerciseLibrary{Name: n})
	}
	if len(missing) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&missing).Error; err != nil {
		return nil, err
	}
	// Re-read so rows inserted concurrently under the same name resolve too.
	again, err := r.FindByNames(dbc, names)
	if err != nil {
		return nil, err
	}
	for _, e := range again {
		out[strings.ToLower(e.Name)] = e.ID
	}
	return out, nil
}

func (r *exerciseLibraryRepo) ListPopular(dbc dbctx.Context, f ExerciseFilter) ([]*types.ExerciseLibrary, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := dbc.DB(r.db).Model(&types.ExerciseLibrary{})
	if mg := strings.ToLower(strings.TrimSpace(f.MuscleGroup)); mg != "" {
		q = q.Where("LOWER(muscle_group) = ?", mg)
	}
	if eq := normalizeNames(f.Equipment); len(eq) > 0 {
		q = q.Where("(equipment = '' OR LOWER(equipment) IN ?)", eq)
	}
	var out []*types.ExerciseLibrary
	if err := q.Order("popularity DESC").Order("name ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *exerciseLibraryRepo) IncrementPopularity(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.ExerciseLibrary{}).
		Where("id IN ?", ids).
		UpdateColumn("popularity", gorm.Expr("popularity + 1")).Error
}

func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := map[string]bool{}
	for _, n := range names {
		k := strings.ToLower(strings.TrimSpace(n))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
