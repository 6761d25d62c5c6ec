package onboarding

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/fitcoach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
)

func TestOnboardingStateRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db, "state@example.com")
	repo := NewOnboardingStateRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	missing, err := repo.GetByUserID(dbc, u.ID)
	if err != nil || missing != nil {
		t.Fatalf("GetByUserID before create: got=%+v err=%v", missing, err)
	}

	st, err := repo.Create(dbc, &types.OnboardingState{UserID: u.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if st.Version != 1 || string(st.StepData) != "{}" || string(st.AgentHistory) != "[]" {
		t.Fatalf("Create: unexpected defaults: %+v", st)
	}

	if _, err := repo.Create(dbc, &types.OnboardingState{UserID: u.ID}); err == nil {
		t.Fatalf("Create twice: expected unique violation")
	}

	if _, err := repo.LockByUserID(dbc, u.ID); err == nil {
		t.Fatalf("LockByUserID without tx: expected error")
	}

	tx := testutil.Tx(t, db)
	locked, err := repo.LockByUserID(dbctx.Context{Ctx: ctx, Tx: tx}, u.ID)
	if err != nil || locked == nil || locked.ID != st.ID {
		t.Fatalf("LockByUserID: got=%+v err=%v", locked, err)
	}
	n, err := repo.SoftDeleteByUserID(dbctx.Context{Ctx: ctx, Tx: tx}, u.ID, time.Now().UTC())
	if err != nil || n != 1 {
		t.Fatalf("SoftDeleteByUserID: n=%d err=%v", n, err)
	}
	gone, err := repo.GetByUserID(dbctx.Context{Ctx: ctx, Tx: tx}, u.ID)
	if err != nil || gone != nil {
		t.Fatalf("GetByUserID after delete: got=%+v err=%v", gone, err)
	}
}
