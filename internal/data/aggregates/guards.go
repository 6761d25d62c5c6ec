package aggregates

import (
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
)

const onboardingStateTable = "onboarding_state"

// StateGuard writes onboarding_state rows with a version compare-and-set so
// two concurrent steps for one user cannot both land.
type StateGuard struct {
	db *gorm.DB
}

func NewStateGuard(db *gorm.DB) StateGuard {
	return StateGuard{db: db}
}

// Advance applies updates only while the row still carries st.Version. On
// success st.Version is bumped to match the stored row; a stale st yields a
// conflict carrying ErrStaleState.
func (g StateGuard) Advance(dbc dbctx.Context, st *types.OnboardingState, updates map[string]any) error {
	if st == nil {
		return ValidationError("onboarding state required")
	}
	db := dbc.Tx
	if db == nil {
		db = g.db
	}
	if db == nil {
		return ValidationError("state guard has no database")
	}
	cols := make(map[string]any, len(updates)+2)
	for k, v := range updates {
		cols[k] = v
	}
	if _, ok := cols["updated_at"]; !ok {
		cols["updated_at"] = time.Now().UTC()
	}
	cols["version"] = st.Version + 1

	res := db.WithContext(dbc.Ctx).Table(onboardingStateTable).
		Where("id = ? AND version = ? AND deleted_at IS NULL", st.ID, st.Version).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return StaleStateError("onboarding state changed concurrently")
	}
	st.Version++
	return nil
}
