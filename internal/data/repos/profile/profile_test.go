package profile

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/fitcoach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
)

func TestUserProfileRepo_FullLoadAndReplace(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	u := testutil.SeedUser(t, ctx, db, "profile@example.com")
	seeded := testutil.SeedProfile(t, ctx, db, u.ID)
	repo := NewUserProfileRepo(db, testutil.Logger(t))

	full, err := repo.GetFullByUserID(dbc, u.ID)
	if err != nil || full == nil {
		t.Fatalf("GetFullByUserID: got=%+v err=%v", full, err)
	}
	if full.ID != seeded.ID || !full.IsLocked {
		t.Fatalf("GetFullByUserID: unexpected root: %+v", full)
	}
	if len(full.Goals) != 1 || full.MealPlan == nil || full.MealPlan.DailyCalorieTarget != 2500 {
		t.Fatalf("GetFullByUserID: children not preloaded: %+v", full)
	}

	err = repo.ReplaceGoals(dbc, full.ID, []types.FitnessGoal{
		{GoalType: "strength", Priority: 2},
		{GoalType: "fat_loss", Priority: 1},
	})
	if err != nil {
		t.Fatalf("ReplaceGoals: %v", err)
	}
	if err := repo.ReplaceConstraints(dbc, full.ID, "equipment", []string{"kettlebell"}); err != nil {
		t.Fatalf("ReplaceConstraints: %v", err)
	}
	err = repo.UpsertChild(dbc, full.ID, &types.HydrationPreference{DailyWaterTargetML: 3000, ReminderFrequencyMinutes: 45},
		map[string]any{"daily_water_target_ml": 3000})
	if err != nil {
		t.Fatalf("UpsertChild create: %v", err)
	}
	err = repo.UpsertChild(dbc, full.ID, &types.HydrationPreference{}, map[string]any{"daily_water_target_ml": 3200})
	if err != nil {
		t.Fatalf("UpsertChild update: %v", err)
	}

	full, err = repo.GetFullByUserID(dbc, u.ID)
	if err != nil {
		t.Fatalf("GetFullByUserID: %v", err)
	}
	if len(full.Goals) != 2 || full.Goals[0].GoalType != "fat_loss" || full.Goals[1].GoalType != "strength" {
		t.Fatalf("ReplaceGoals: unexpected goals %+v", full.Goals)
	}
	if len(full.Constraints) != 1 || full.Constraints[0].Description != "kettlebell" {
		t.Fatalf("ReplaceConstraints: unexpected %+v", full.Constraints)
	}
	if full.HydrationPreference == nil || full.HydrationPreference.DailyWaterTargetML != 3200 {
		t.Fatalf("UpsertChild: unexpected %+v", full.HydrationPreference)
	}

	affected, err := repo.SoftDeleteByUserID(dbc, u.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("SoftDeleteByUserID: %v", err)
	}
	if affected["user_profile"] != 1 || affected["fitness_goal"] != 2 || affected["meal_plan"] != 1 {
		t.Fatalf("SoftDeleteByUserID: unexpected counts %v", affected)
	}
	gone, err := repo.GetByUserID(dbc, u.ID)
	if err != nil || gone != nil {
		t.Fatalf("GetByUserID after delete: got=%+v err=%v", gone, err)
	}
	var alive int64
	db.Model(&types.MealSchedule{}).Where("profile_id = ?", full.ID).Count(&alive)
	if alive != 0 {
		t.Fatalf("expected meal schedules hidden, got %d", alive)
	}
}

func TestProfileVersionRepo_DenseAndImmutable(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	u := testutil.SeedUser(t, ctx, db, "versions@example.com")
	p := testutil.SeedProfile(t, ctx, db, u.ID)
	repo := NewProfileVersionRepo(db, testutil.Logger(t))

	max, err := repo.MaxVersion(dbc, p.ID)
	if err != nil || max != 0 {
		t.Fatalf("MaxVersion empty: max=%d err=%v", max, err)
	}
	for i := 1; i <= 3; i++ {
		if _, err := repo.Create(dbc, &types.ProfileVersion{
			ProfileID:     p.ID,
			VersionNumber: i,
			ChangeReason:  "r",
			Snapshot:      []byte(`{}`),
		}); err != nil {
			t.Fatalf("Create v%d: %v", i, err)
		}
	}
	if _, err := repo.Create(dbc, &types.ProfileVersion{ProfileID: p.ID, VersionNumber: 2, Snapshot: []byte(`{}`)}); err == nil {
		t.Fatalf("Create duplicate number: expected error")
	}

	max, _ = repo.MaxVersion(dbc, p.ID)
	if max != 3 {
		t.Fatalf("MaxVersion: expected 3, got %d", max)
	}
	list, err := repo.ListByProfileID(dbc, p.ID)
	if err != nil || len(list) != 3 || list[0].VersionNumber != 1 || list[2].VersionNumber != 3 {
		t.Fatalf("ListByProfileID: list=%v err=%v", list, err)
	}

	v2, err := repo.GetByNumber(dbc, p.ID, 2)
	if err != nil || v2 == nil {
		t.Fatalf("GetByNumber: got=%+v err=%v", v2, err)
	}
	v2.ChangeReason = "rewritten"
	if err := db.Save(v2).Error; !apierr.Is(err, apierr.CodeImmutableRecord) {
		t.Fatalf("Save existing version: expected immutable_record, got %v", err)
	}
	if err := db.Delete(v2).Error; !apierr.Is(err, apierr.CodeImmutableRecord) {
		t.Fatalf("Delete version: expected immutable_record, got %v", err)
	}
	if err := db.Model(v2).UpdateColumn("change_reason", "tampered").Error; !apierr.Is(err, apierr.CodeImmutableRecord) {
		t.Fatalf("UpdateColumn version: expected immutable_record, got %v", err)
	}
	if err := db.Model(v2).UpdateColumns(map[string]any{"change_reason": "tampered"}).Error; !apierr.Is(err, apierr.CodeImmutableRecord) {
		t.Fatalf("UpdateColumns version: expected immutable_record, got %v", err)
	}
	skip := db.Session(&gorm.Session{SkipHooks: true})
	if err := skip.Model(&types.ProfileVersion{}).Where("id = ?", v2.ID).Update("change_reason", "tampered").Error; !apierr.Is(err, apierr.CodeImmutableRecord) {
		t.Fatalf("Update with SkipHooks: expected immutable_record, got %v", err)
	}
	if err := skip.Where("id = ?", v2.ID).Delete(&types.ProfileVersion{}).Error; !apierr.Is(err, apierr.CodeImmutableRecord) {
		t.Fatalf("Delete with SkipHooks: expected immutable_record, got %v", err)
	}
	if err := db.Table("profile_version").Where("id = ?", v2.ID).Updates(map[string]any{"change_reason": "tampered"}).Error; !apierr.Is(err, apierr.CodeImmutableRecord) {
		t.Fatalf("Table update: expected immutable_record, got %v", err)
	}
	if err := db.Exec("UPDATE profile_version SET change_reason = ? WHERE id = ?", "tampered", v2.ID).Error; err == nil {
		t.Fatalf("raw UPDATE: expected trigger to abort")
	}
	if err := db.Exec("DELETE FROM profile_version WHERE id = ?", v2.ID).Error; err == nil {
		t.Fatalf("raw DELETE: expected trigger to abort")
	}
	reread, err := repo.GetByNumber(dbc, p.ID, 2)
	if err != nil || reread == nil || reread.ChangeReason != "r" {
		t.Fatalf("version 2 changed: got=%+v err=%v", reread, err)
	}

	missing, err := repo.GetByNumber(dbc, p.ID, 9)
	if err != nil || missing != nil {
		t.Fatalf("GetByNumber missing: got=%+v err=%v", missing, err)
	}
}
